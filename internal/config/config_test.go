package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cluster "github.com/MadAppGang/animcluster"
)

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &Config{}
	if got := cfg.Options(); got != cluster.DefaultOptions() {
		t.Errorf("Options() = %+v, want %+v", got, cluster.DefaultOptions())
	}
	if cfg.GetAddr() != DefaultAddr {
		t.Errorf("GetAddr() = %q, want %q", cfg.GetAddr(), DefaultAddr)
	}
	if cfg.GetMaxViews() != 0 {
		t.Errorf("GetMaxViews() = %d, want 0", cfg.GetMaxViews())
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animcluster.json")
	testJSON := `{
  "min_distance": 45,
  "move_duration": "500ms",
  "show_clusters": false,
  "addr": "127.0.0.1:9000"
}`
	require.NoError(t, os.WriteFile(path, []byte(testJSON), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, 45.0, opts.MinDistance)
	assert.Equal(t, 500*time.Millisecond, opts.MoveDuration)
	assert.False(t, opts.ShowClusters)
	assert.Equal(t, 0.0, opts.PressRadius)
	assert.Equal(t, "127.0.0.1:9000", cfg.GetAddr())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animcluster.yaml")
	testYAML := "press_radius: 12\nmax_views: 64\n"
	require.NoError(t, os.WriteFile(path, []byte(testYAML), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 12.0, cfg.GetPressRadius())
	assert.Equal(t, 64, cfg.GetMaxViews())
	assert.Equal(t, float64(cluster.DefaultMinDistance), cfg.GetMinDistance())
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		file    string
		content string
		errPart string
	}{
		"extension":      {"cfg.toml", "min_distance = 1", "extension"},
		"negative":       {"neg.json", `{"min_distance": -1}`, "min_distance"},
		"bad duration":   {"dur.yml", "move_duration: soon\n", "move_duration"},
		"negative views": {"views.json", `{"max_views": -2}`, "max_views"},
		"broken json":    {"broken.json", `{"min_distance":`, "parse"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, tc.file)
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errPart)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsLargeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "large.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat(" ", maxFileSize+1)), 0644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvMinDistance:  "20",
		EnvMoveDuration: "1s",
		EnvShowClusters: "false",
		EnvPressRadius:  "8",
		EnvAddr:         ":9999",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := &Config{MinDistance: ptrFloat64(50)}
	require.NoError(t, cfg.ApplyEnv(lookup))

	assert.Equal(t, cluster.Options{
		MinDistance:  20,
		MoveDuration: time.Second,
		ShowClusters: false,
		PressRadius:  8,
	}, cfg.Options())
	assert.Equal(t, ":9999", cfg.GetAddr())

	env[EnvShowClusters] = "maybe"
	assert.Error(t, cfg.ApplyEnv(lookup))

	env[EnvShowClusters] = "true"
	env[EnvPressRadius] = "-1"
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(EnvMinDistance+"=33\n"), 0644))
	require.NoError(t, os.Unsetenv(EnvMinDistance))
	t.Cleanup(func() { os.Unsetenv(EnvMinDistance) })

	require.NoError(t, LoadDotenv(filepath.Join(t.TempDir(), "missing.env"), path))

	cfg := &Config{}
	require.NoError(t, cfg.ApplyEnv(os.LookupEnv))
	assert.Equal(t, 33.0, cfg.GetMinDistance())
}
