package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/pavement-cli/internal/config"
)

// useConfig installs a config with the default settings for the test.
func useConfig(t *testing.T, mutate ...func(*config.Config)) *config.Config {
	t.Helper()
	c := &config.Config{
		Calc: config.CalcConfig{
			CurrentYear:     2025,
			DesignLifeYears: 20,
			GrowthRate:      0.0154,
			HGVFloorPercent: 11,
			Concurrency:     2,
		},
		Reference: config.ReferenceConfig{Strategy: "band"},
		Input:     config.InputConfig{Encoding: "utf-8"},
		Tracs:     config.TracsConfig{MaxRutting: 10, MinTexture: 0.8},
		Store:     config.StoreConfig{Driver: "none"},
		Server: config.ServerConfig{
			Port:        8080,
			RateLimit:   5,
			RateBurst:   10,
			MaxUploadMB: 32,
			CORSOrigins: []string{"*"},
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
	for _, m := range mutate {
		m(c)
	}

	old := cfg
	cfg = c
	t.Cleanup(func() { cfg = old })
	return c
}

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdirTemp moves into a fresh directory for the duration of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(orig) }) //nolint:errcheck
	return dir
}
