package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv overrides the config file location.
const PathEnv = "EDGETPU_CONFIG"

const DefaultPath = "config.yaml"

type Config struct {
	HTTPPort      int     `yaml:"HTTPPort"`
	RPCPort       int     `yaml:"RPCPort"`
	MetricsPort   int     `yaml:"MetricsPort"`
	LabelFile     string  `yaml:"labelFile"`
	LabelEncoding string  `yaml:"labelEncoding"`
	ModelFile     string  `yaml:"modelFile"`
	ImagesDir     string  `yaml:"imagesDir"`
	OutputPath    string  `yaml:"outputPath"`
	OutputDir     string  `yaml:"outputDir"`
	UniqueOutput  bool    `yaml:"uniqueOutput"`
	Threshold     float32 `yaml:"threshold"`
	Benchmark     bool    `yaml:"benchmark"`
	Show          bool    `yaml:"show"`
	QueueSize     int     `yaml:"queueSize"`
	Debug         bool    `yaml:"debug"`
	UseRegServer  bool    `yaml:"UseRegServer"`
	RegServerHost string  `yaml:"RegServerHost"`
	RegServerPort int     `yaml:"RegServerPort"`
}

func Default() Config {
	return Config{
		HTTPPort:      8000,
		RPCPort:       50051,
		MetricsPort:   50052,
		LabelFile:     "models/coco_labels.txt",
		LabelEncoding: "utf-8",
		ModelFile:     "models/mobilenet_ssd_v2_coco_quant_postprocess_edgetpu.tflite",
		ImagesDir:     "images",
		OutputPath:    "result.jpg",
		OutputDir:     "results",
		Threshold:     0.4,
		Benchmark:     true,
		QueueSize:     16,
	}
}

// Path loads .env when present and returns the config file to read.
func Path() string {
	_ = godotenv.Load()
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads path over the defaults. A missing file leaves the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0, got %f", c.Threshold)
	}
	for name, port := range map[string]int{"HTTPPort": c.HTTPPort, "RPCPort": c.RPCPort, "MetricsPort": c.MetricsPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %d", name, port)
		}
	}
	if c.ModelFile == "" {
		return errors.New("modelFile cannot be empty")
	}
	if c.UseRegServer && c.RegServerHost == "" {
		return errors.New("RegServerHost is required when UseRegServer is set")
	}
	return nil
}
