package common

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key LoadConfig reads; viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"AWS_REGION", "AWS_ENDPOINT_URL", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"BEDROCK_MODEL_ID", "BEDROCK_MAX_TOKENS", "BEDROCK_TEMPERATURE", "BEDROCK_TIMEOUT",
		"STORE_BACKEND", "DYNAMODB_TABLE_NAME", "DB_URL", "MAX_PDF_SIZE_MB", "MAX_PROMPT_CHARS",
		"WORKERS", "QUEUE_SIZE", "PROCESS_TIMEOUT", "GRPC_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.AWS.Region)
	assert.Equal(t, "anthropic.claude-3-sonnet-20240229-v1:0", cfg.Bedrock.ModelID)
	assert.Equal(t, 1000, cfg.Bedrock.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Bedrock.Temperature, 1e-9)
	assert.Equal(t, 2*time.Minute, cfg.Bedrock.Timeout)
	assert.Equal(t, BackendDynamoDB, cfg.Store.Backend)
	assert.Equal(t, "invoices", cfg.Store.TableName)
	assert.Equal(t, int64(50<<20), cfg.Text.MaxPDFBytes())
	assert.Equal(t, 10000, cfg.Text.MaxPromptChars)
	assert.Equal(t, 4, cfg.Worker.Workers)
	assert.False(t, cfg.AWS.StaticCredentials())
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AWS_REGION", "eu-west-3")
	t.Setenv("AWS_ENDPOINT_URL", "http://localhost:8000")
	t.Setenv("AWS_ACCESS_KEY_ID", "local")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "local")
	t.Setenv("BEDROCK_MODEL_ID", "claude-3-haiku")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("DB_URL", "file:invoices.db")
	t.Setenv("PROCESS_TIMEOUT", "90s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "eu-west-3", cfg.AWS.Region)
	assert.Equal(t, "http://localhost:8000", cfg.AWS.Endpoint)
	assert.True(t, cfg.AWS.StaticCredentials())
	assert.Equal(t, "claude-3-haiku", cfg.Bedrock.ModelID)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 90*time.Second, cfg.Worker.ProcessTimeout)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"temperature", map[string]string{"BEDROCK_TEMPERATURE": "1.5"}, "BEDROCK_TEMPERATURE"},
		{"max tokens", map[string]string{"BEDROCK_MAX_TOKENS": "-1"}, "BEDROCK_MAX_TOKENS"},
		{"backend", map[string]string{"STORE_BACKEND": "mongo"}, "STORE_BACKEND"},
		{"sql without dsn", map[string]string{"STORE_BACKEND": "postgres"}, "DB_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
