package engine

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	iface "EdgeTpuDetServer/interface"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLabels(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLabels(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    iface.Labels
	}{
		{"indexed", "0 cat\n1 dog\n", iface.Labels{0: "cat", 1: "dog"}},
		{"plain", "cat\ndog\n", iface.Labels{0: "cat", 1: "dog"}},
		{"empty", "", iface.Labels{}},
		{"sparse indexes", "0 person\n2 car\n87 teddy bear\n", iface.Labels{0: "person", 2: "car", 87: "teddy bear"}},
		{"crlf", "cat\r\ndog\r\n", iface.Labels{0: "cat", 1: "dog"}},
		{"trimmed", "  cat  \ndog\t\n", iface.Labels{0: "cat", 1: "dog"}},
		{"no trailing newline", "0 cat\n1 dog", iface.Labels{0: "cat", 1: "dog"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			labels, err := LoadLabels(writeLabels(t, tc.content), "utf-8")
			require.NoError(t, err)
			assert.Equal(t, tc.want, labels)
		})
	}
}

func TestLoadLabels_ParseError(t *testing.T) {
	for _, content := range []string{"0 cat\ndog\n", "0 cat\nx dog\n", "0\n"} {
		_, err := LoadLabels(writeLabels(t, content), "")
		assert.ErrorIs(t, err, ErrParse, content)
	}
}

func TestLoadLabels_IOError(t *testing.T) {
	_, err := LoadLabels(filepath.Join(t.TempDir(), "missing.txt"), "utf-8")
	assert.ErrorIs(t, err, ErrIO)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, err = LoadLabels(writeLabels(t, "cat\n"), "no-such-encoding")
	assert.ErrorIs(t, err, ErrIO)
}

func TestLoadLabels_Encoding(t *testing.T) {
	// "café" in latin-1
	path := writeLabels(t, "0 caf\xe9\n")
	labels, err := LoadLabels(path, "latin1")
	require.NoError(t, err)
	assert.Equal(t, "café", labels.Get(0))
	assert.Equal(t, "5", labels.Get(5))
}
