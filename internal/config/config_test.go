package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://api.hubapi.com", cfg.HubSpot.BaseURL)
	assert.Equal(t, "marker", cfg.Oracle.Strategy)
	assert.True(t, cfg.Oracle.DoubleVerify)
	assert.Equal(t, 180, cfg.Oracle.TimeoutSecs)
	assert.Equal(t, 3, cfg.Oracle.MaxAttempts)
	assert.Equal(t, "https://api.anthropic.com", cfg.Oracle.Anthropic.BaseURL)
	assert.Equal(t, "glm-4.7", cfg.Oracle.GLM.Model)
	assert.Equal(t, "https://api.z.ai/api/coding/paas/v4", cfg.Oracle.GLM.BaseURL)
	assert.Equal(t, 300, cfg.Dedup.WindowSecs)
	assert.Empty(t, cfg.Slack.Token)
	assert.Empty(t, cfg.Slack.AllowedChannels)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
server:
  port: 9090
log:
  level: debug
  format: console
slack:
  token: xoxb-test
  notify_user: U12345
  allowed_channels:
    - C001
    - C002
  lead_phrases:
    - "A new lead"
hubspot:
  token: pat-test
oracle:
  strategy: structured
  double_verify: false
  anthropic:
    key: sk-ant-test
dedup:
  window_secs: 60
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "xoxb-test", cfg.Slack.Token)
	assert.Equal(t, "U12345", cfg.Slack.NotifyUser)
	assert.Equal(t, []string{"C001", "C002"}, cfg.Slack.AllowedChannels)
	assert.Equal(t, []string{"A new lead"}, cfg.Slack.LeadPhrases)
	assert.Equal(t, "pat-test", cfg.HubSpot.Token)
	assert.Equal(t, "structured", cfg.Oracle.Strategy)
	assert.False(t, cfg.Oracle.DoubleVerify)
	assert.Equal(t, "sk-ant-test", cfg.Oracle.Anthropic.Key)
	assert.Equal(t, 60, cfg.Dedup.WindowSecs)

	// File values should not clobber unrelated defaults.
	assert.Equal(t, "glm-4.7", cfg.Oracle.GLM.Model)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("QUALIFIER_SLACK_TOKEN", "xoxb-env")
	t.Setenv("QUALIFIER_HUBSPOT_TOKEN", "pat-env")
	t.Setenv("QUALIFIER_ORACLE_GLM_KEY", "glm-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "xoxb-env", cfg.Slack.Token)
	assert.Equal(t, "pat-env", cfg.HubSpot.Token)
	assert.Equal(t, "glm-env", cfg.Oracle.GLM.Key)
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{not yaml::"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
	}{
		{name: "json_info", cfg: LogConfig{Level: "info", Format: "json"}},
		{name: "console_debug", cfg: LogConfig{Level: "debug", Format: "console"}},
		{name: "bad_level", cfg: LogConfig{Level: "shout", Format: "json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitLogger(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, zap.L())
		})
	}
}
