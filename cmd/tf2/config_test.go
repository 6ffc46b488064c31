package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-digitaltwin/tf2"
)

func writeFile(name, content string) error {
	return os.WriteFile(name, []byte(content), 0o644)
}

// hermetic keeps configuration files in the environment out of the test.
func hermetic(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func newTestViper(args ...string) (*viper.Viper, error) {
	v := viper.New()
	cmd := &cobra.Command{Use: "test"}
	bindFlags(cmd, v)
	return v, cmd.PersistentFlags().Parse(args)
}

func TestLoadConfigDefaults(t *testing.T) {
	hermetic(t)
	v, err := newTestViper()
	require.NoError(t, err)

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, defaultDynamicTopic, cfg.DynamicTopic)
	assert.Equal(t, defaultStaticTopic, cfg.StaticTopic)
	assert.Equal(t, tf2.DefaultCacheTime, cfg.CacheTime)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, strings.HasPrefix(cfg.Authority, "tf2-"), "default authority %q lacks the tf2- prefix", cfg.Authority)
}

func TestLoadConfigPrecedence(t *testing.T) {
	hermetic(t)
	require.NoError(t, writeFile("tf2.yaml", `
dynamic_topic: mem://from-file
cache_time: 20s
log_level: debug
authority: from-file
`))
	t.Setenv("TF2_CACHE_TIME", "30s")
	v, err := newTestViper("--authority", "from-flag")
	require.NoError(t, err)

	cfg, err := loadConfig(v, "")
	require.NoError(t, err)
	assert.Equal(t, "mem://from-file", cfg.DynamicTopic)
	assert.Equal(t, 30*time.Second, cfg.CacheTime)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "from-flag", cfg.Authority)
}

func TestLoadConfigErrors(t *testing.T) {
	hermetic(t)

	v, err := newTestViper()
	require.NoError(t, err)
	_, err = loadConfig(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicitly named config file must exist")

	v, err = newTestViper("--log-level", "loud")
	require.NoError(t, err)
	_, err = loadConfig(v, "")
	assert.ErrorContains(t, err, cfgKeyLogLevel)
}

func TestFromRPY(t *testing.T) {
	for _, tt := range []struct {
		name             string
		roll, pitch, yaw float64
		want             tf2.Quaternion
	}{
		{name: "identity", want: tf2.Quaternion{W: 1}},
		{name: "yaw", yaw: 1.5707963267948966, want: tf2.Quaternion{Z: 0.7071067811865476, W: 0.7071067811865476}},
		{name: "roll", roll: 3.141592653589793, want: tf2.Quaternion{X: 1}},
		{name: "pitch", pitch: -1.5707963267948966, want: tf2.Quaternion{Y: -0.7071067811865476, W: 0.7071067811865476}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := fromRPY(tt.roll, tt.pitch, tt.yaw)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Z, got.Z, 1e-9)
			assert.InDelta(t, tt.want.W, got.W, 1e-9)
		})
	}
}
