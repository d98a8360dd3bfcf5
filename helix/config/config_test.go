package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	internal "github.com/ZanzyTHEbar/helix/helix"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	viper.Reset()

	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()
	require.NoError(suite.T(), os.Chdir(suite.tempDir))
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
	viper.Reset()
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultServerAddr, cfg.Helix.Addr)
	assert.Equal(suite.T(), internal.DefaultUIOrigin, cfg.Helix.AllowedOrigin)
	assert.Equal(suite.T(), internal.DefaultDatabaseDSN, cfg.Helix.Database.DSN)
	assert.Equal(suite.T(), internal.DefaultDatabaseType, cfg.Helix.Database.Type)
	assert.True(suite.T(), cfg.Helix.Database.Enabled)

	assert.Equal(suite.T(), "openai", cfg.LLM.Provider)
	assert.Equal(suite.T(), "gpt-4", cfg.LLM.Model)
	assert.Equal(suite.T(), 120*time.Second, cfg.LLM.Timeout)
	assert.Equal(suite.T(), 500, cfg.LLM.Extraction.MaxNewTokens)
	assert.InDelta(suite.T(), 0.3, cfg.LLM.Extraction.Temperature, 1e-6)
	assert.Equal(suite.T(), 5000, cfg.LLM.Generation.MaxNewTokens)
	assert.InDelta(suite.T(), 0.7, cfg.LLM.Generation.Temperature, 1e-6)

	assert.Equal(suite.T(), 5, cfg.Harness.HistoryWindow)
	assert.Equal(suite.T(), time.Second, cfg.Harness.RateLimitRefillRate)
	assert.Equal(suite.T(), 24*time.Hour, cfg.Sessions.TTL)
	assert.Equal(suite.T(), "hub", cfg.Notify.Provider)
	assert.Equal(suite.T(), 4, cfg.Dispatch.Workers)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
helix:
  addr: ":8080"
  database:
    dsn: "file:test.db"
    enabled: false
llm:
  provider: "scripted"
  script_path: "./replies.yaml"
  generation:
    temperature: 0.9
notify:
  provider: "nats"
  subject_prefix: "recruiting"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(configContent), 0o644))

	cfg, err := LoadConfig(configFile)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), ":8080", cfg.Helix.Addr)
	assert.Equal(suite.T(), "file:test.db", cfg.Helix.Database.DSN)
	assert.False(suite.T(), cfg.Helix.Database.Enabled)
	assert.Equal(suite.T(), "scripted", cfg.LLM.Provider)
	assert.Equal(suite.T(), "./replies.yaml", cfg.LLM.ScriptPath)
	assert.InDelta(suite.T(), 0.9, cfg.LLM.Generation.Temperature, 1e-6)
	// untouched keys in a partially specified section keep their defaults
	assert.Equal(suite.T(), 5000, cfg.LLM.Generation.MaxNewTokens)
	assert.Equal(suite.T(), "nats", cfg.Notify.Provider)
	assert.Equal(suite.T(), "recruiting", cfg.Notify.SubjectPrefix)
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnv() {
	suite.T().Setenv("LLM_MODEL", "gpt-4o-mini")
	suite.T().Setenv("HARNESS_HISTORY_WINDOW", "8")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(suite.T(), 8, cfg.Harness.HistoryWindow)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
helix:
  addr: ":5000"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	require.NoError(suite.T(), os.WriteFile(configFile, []byte(malformedContent), 0o644))

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), cfg.Helix.Addr, AppConfig.Helix.Addr)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for b.Loop() {
		viper.Reset()
		if _, err := LoadConfig(""); err != nil {
			b.Fatal(err)
		}
	}
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	SetLevel("warn")
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	logger := NewLogger(LogConfig{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	assert.True(t, logger.Debug().Enabled())
}
