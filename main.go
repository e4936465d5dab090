package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"time"

	adhoc "EdgeTpuDetServer/Adhoc"
	"EdgeTpuDetServer/config"
	"EdgeTpuDetServer/engine"
	"EdgeTpuDetServer/engine/tpu"
	backend "EdgeTpuDetServer/gRPC"
	"EdgeTpuDetServer/logger"
	"EdgeTpuDetServer/monitor"
	"EdgeTpuDetServer/pipeline"
	"EdgeTpuDetServer/router"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	path := config.Path()
	if *configPath != "" {
		path = *configPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Debug); err != nil {
		fmt.Println("Failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log()

	fmt.Println(strings.Repeat("#", 64))
	fmt.Println(" Edge TPU runtime:", tpu.Version())
	fmt.Println(" HTTP  Port:", cfg.HTTPPort)
	fmt.Println(" gRPC  Port:", cfg.RPCPort)
	fmt.Println(" Metrics Port:", cfg.MetricsPort)
	fmt.Println(" Model:", cfg.ModelFile)
	fmt.Println(strings.Repeat("#", 64))
	log.Info("starting", zap.String("config", path), zap.Int("cpus", runtime.NumCPU()))

	labels, err := engine.LoadLabels(cfg.LabelFile, cfg.LabelEncoding)
	if err != nil {
		log.Fatal("failed to load labels", zap.String("path", cfg.LabelFile), zap.Error(err))
	}
	log.Info("labels loaded", zap.Int("count", len(labels)))

	detector := &engine.Detector{}
	detector.New(tpu.MakeInterpreter)
	if err := detector.LoadModel(cfg.ModelFile, cfg.Threshold); err != nil {
		log.Fatal("failed to load model", zap.Error(err))
	}
	defer detector.Destroy()
	log.Info("engine ready", zap.Any("engine", detector.CheckConfig()))

	pipe := pipeline.New(detector, labels, pipeline.Options{
		ImagesDir:    cfg.ImagesDir,
		OutputPath:   cfg.OutputPath,
		OutputDir:    cfg.OutputDir,
		UniqueOutput: cfg.UniqueOutput,
		Benchmark:    cfg.Benchmark,
		Show:         cfg.Show,
		QueueSize:    cfg.QueueSize,
	})
	pipe.Start()
	defer pipe.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	var wg sync.WaitGroup

	rpcServer, err := backend.StartGRPCServer(cfg.RPCPort, pipe)
	if err != nil {
		log.Fatal("failed to start gRPC server", zap.Error(err))
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.StartMon(ctx, cfg.MetricsPort); err != nil {
			log.Error("monitor stopped", zap.Error(err))
		}
	}()

	if cfg.UseRegServer {
		ip, err := adhoc.GetOutboundIP()
		if err != nil {
			log.Error("failed to get outbound IP, skipping registration", zap.Error(err))
		} else {
			reg := adhoc.RegServerConfig{}
			reg.SetAddress(cfg.RegServerHost, cfg.RegServerPort)
			wg.Add(1)
			go adhoc.SendAliveMessage(ctx, &wg, reg, ip, cfg.RPCPort, cfg.ModelFile)
		}
	} else {
		log.Info("UseRegServer is set to false, skipping registration")
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	resultsDir := ""
	if cfg.UniqueOutput {
		resultsDir = cfg.OutputDir
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: router.New(pipe, router.Options{ResultsDir: resultsDir}),
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP shutdown", zap.Error(err))
	}
	rpcServer.GracefulStop()
	wg.Wait()
	log.Info("Safely exited")
}
