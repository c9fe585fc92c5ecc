// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	// 工作流默认值
	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
	assert.Equal(t, 10, cfg.Workflow.TopK)
	assert.Equal(t, 1, cfg.Workflow.MinRelevantDocs)
	assert.Equal(t, 1000, cfg.Workflow.GradeContentLimit)
	assert.Equal(t, "open", cfg.Workflow.FailPolicy)
	assert.Equal(t, 0.3, cfg.Workflow.GenerateTemperature)
	assert.Equal(t, 0.1, cfg.Workflow.RegenerateTemperature)
	assert.Equal(t, 0.7, cfg.Workflow.FallbackConfidence)
	assert.Contains(t, cfg.Workflow.TopicHints, "roaming")

	assert.Equal(t, "qdrant", cfg.Retrieval.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Workflow.MaxRetries)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s
  api_keys: ["k1", "k2"]

workflow:
  max_retries: 5
  top_k: 4
  min_relevant_docs: 2
  grade_concurrency: 4
  fail_policy: closed
  topic_hints: ["billing"]

retrieval:
  backend: pgvector

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)

	assert.Equal(t, 5, cfg.Workflow.MaxRetries)
	assert.Equal(t, 4, cfg.Workflow.TopK)
	assert.Equal(t, 2, cfg.Workflow.MinRelevantDocs)
	assert.Equal(t, 4, cfg.Workflow.GradeConcurrency)
	assert.Equal(t, "closed", cfg.Workflow.FailPolicy)
	assert.Equal(t, []string{"billing"}, cfg.Workflow.TopicHints)
	// 未覆盖的字段保留默认值
	assert.Equal(t, 1000, cfg.Workflow.GradeContentLimit)

	assert.Equal(t, "pgvector", cfg.Retrieval.Backend)
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("SUPPORTFLOW_SERVER_HTTP_PORT", "7777")
	t.Setenv("SUPPORTFLOW_WORKFLOW_MAX_RETRIES", "2")
	t.Setenv("SUPPORTFLOW_WORKFLOW_GENERATE_TIMEOUT", "45s")
	t.Setenv("SUPPORTFLOW_WORKFLOW_FALLBACK_CONFIDENCE", "0.6")
	t.Setenv("SUPPORTFLOW_WORKFLOW_TOPIC_HINTS", "billing, roaming")
	t.Setenv("SUPPORTFLOW_CACHE_ENABLED", "true")
	t.Setenv("SUPPORTFLOW_REDIS_ADDR", "env-redis:6379")
	t.Setenv("SUPPORTFLOW_LOG_LEVEL", "warn")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, 2, cfg.Workflow.MaxRetries)
	assert.Equal(t, 45*time.Second, cfg.Workflow.GenerateTimeout)
	assert.Equal(t, 0.6, cfg.Workflow.FallbackConfidence)
	assert.Equal(t, []string{"billing", "roaming"}, cfg.Workflow.TopicHints)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
llm:
  model: "yaml-model"
  base_url: "http://yaml"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("SUPPORTFLOW_SERVER_HTTP_PORT", "9999")
	t.Setenv("SUPPORTFLOW_LLM_MODEL", "env-model")

	cfg, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	// YAML 值应该保留
	assert.Equal(t, "http://yaml", cfg.LLM.BaseURL)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")
	t.Setenv("MYAPP_WORKFLOW_TOP_K", "3")

	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.HTTPPort)
	assert.Equal(t, 3, cfg.Workflow.TopK)
}

func TestLoader_WithValidator(t *testing.T) {
	t.Setenv("SUPPORTFLOW_WORKFLOW_MAX_RETRIES", "0")

	_, err := NewLoader().
		WithValidator((*Config).Validate).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_retries")
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("SUPPORTFLOW_WORKFLOW_RUN_TIMEOUT", "soon")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  http_port: [invalid
  this is not valid yaml
`
	require.NoError(t, os.WriteFile(configPath, []byte(invalidYAML), 0644))

	_, err := NewLoader().
		WithConfigPath(configPath).
		Load()
	assert.Error(t, err)
}

// --- 配置验证测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.HTTPPort = 70000 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "zero retries",
			mutate:  func(c *Config) { c.Workflow.MaxRetries = 0 },
			wantErr: "max_retries",
		},
		{
			name:    "zero top k",
			mutate:  func(c *Config) { c.Workflow.TopK = 0 },
			wantErr: "top_k",
		},
		{
			name:    "zero min relevant docs",
			mutate:  func(c *Config) { c.Workflow.MinRelevantDocs = 0 },
			wantErr: "min_relevant_docs",
		},
		{
			name:    "unknown fail policy",
			mutate:  func(c *Config) { c.Workflow.FailPolicy = "maybe" },
			wantErr: "fail_policy",
		},
		{
			name:    "fallback confidence out of range",
			mutate:  func(c *Config) { c.Workflow.FallbackConfidence = 1.5 },
			wantErr: "fallback_confidence",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Retrieval.Backend = "elastic" },
			wantErr: "retrieval backend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres",
			config: DatabaseConfig{
				Driver: "postgres", Host: "db", Port: 5432, User: "u",
				Password: "p", Name: "support", SSLMode: "disable",
			},
			expected: "host=db port=5432 user=u password=p dbname=support sslmode=disable",
		},
		{
			name: "mysql",
			config: DatabaseConfig{
				Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "support",
			},
			expected: "u:p@tcp(db:3306)/support?parseTime=true",
		},
		{
			name:     "sqlite",
			config:   DatabaseConfig{Driver: "sqlite", Name: "/tmp/runs.db"},
			expected: "/tmp/runs.db",
		},
		{
			name:     "unknown",
			config:   DatabaseConfig{Driver: "oracle"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestMustLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("workflow:\n  max_retries: 0\n"), 0644))

	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}
