package common

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	BackendDynamoDB = "dynamodb"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds all application configuration
type Config struct {
	AWS      AWSConfig
	Bedrock  BedrockConfig
	Store    StoreConfig
	Text     TextConfig
	Worker   WorkerConfig
	Server   ServerConfig
	LogLevel string
	LogFmt   string
}

// AWSConfig holds region and endpoint overrides shared by every AWS client
type AWSConfig struct {
	Region          string
	Endpoint        string // local DynamoDB / S3 emulators; empty in production
	AccessKeyID     string
	SecretAccessKey string
}

// StaticCredentials reports whether both keys are set.
func (c AWSConfig) StaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// BedrockConfig holds model invocation settings
type BedrockConfig struct {
	ModelID     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// StoreConfig holds record store settings
type StoreConfig struct {
	Backend       string
	TableName     string
	ReadCapacity  int64
	WriteCapacity int64
	DSN           string
}

// TextConfig holds text extraction and prompt sizing settings
type TextConfig struct {
	Pdftotext      string
	MaxPDFSizeMB   int
	MaxPromptChars int
	TempDir        string
}

// WorkerConfig holds batch queue settings
type WorkerConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// LoadConfig reads configuration from the environment. Keys use dots internally and
// map to upper-case underscore variables (bedrock.model_id -> BEDROCK_MODEL_ID).
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	applyDefaults(v)

	cfg := &Config{
		AWS: AWSConfig{
			Region:          v.GetString("aws.region"),
			Endpoint:        v.GetString("aws.endpoint_url"),
			AccessKeyID:     v.GetString("aws.access_key_id"),
			SecretAccessKey: v.GetString("aws.secret_access_key"),
		},
		Bedrock: BedrockConfig{
			ModelID:     v.GetString("bedrock.model_id"),
			MaxTokens:   v.GetInt("bedrock.max_tokens"),
			Temperature: v.GetFloat64("bedrock.temperature"),
			Timeout:     v.GetDuration("bedrock.timeout"),
		},
		Store: StoreConfig{
			Backend:       strings.ToLower(v.GetString("store.backend")),
			TableName:     v.GetString("dynamodb.table_name"),
			ReadCapacity:  v.GetInt64("dynamodb.read_capacity"),
			WriteCapacity: v.GetInt64("dynamodb.write_capacity"),
			DSN:           v.GetString("db.url"),
		},
		Text: TextConfig{
			Pdftotext:      v.GetString("pdftotext.bin"),
			MaxPDFSizeMB:   v.GetInt("max_pdf_size_mb"),
			MaxPromptChars: v.GetInt("max_prompt_chars"),
			TempDir:        v.GetString("temp.dir"),
		},
		Worker: WorkerConfig{
			Workers:        v.GetInt("workers"),
			QueueSize:      v.GetInt("queue_size"),
			ProcessTimeout: v.GetDuration("process_timeout"),
		},
		Server: ServerConfig{
			GRPCAddr: v.GetString("grpc.addr"),
		},
		LogLevel: v.GetString("log.level"),
		LogFmt:   v.GetString("log.format"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-west-2")
	v.SetDefault("aws.endpoint_url", "")
	v.SetDefault("aws.access_key_id", "")
	v.SetDefault("aws.secret_access_key", "")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-sonnet-20240229-v1:0")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.timeout", 2*time.Minute)
	v.SetDefault("store.backend", BackendDynamoDB)
	v.SetDefault("dynamodb.table_name", "invoices")
	v.SetDefault("dynamodb.read_capacity", 5)
	v.SetDefault("dynamodb.write_capacity", 5)
	v.SetDefault("db.url", "")
	v.SetDefault("pdftotext.bin", "pdftotext")
	v.SetDefault("max_pdf_size_mb", 50)
	v.SetDefault("max_prompt_chars", 10000)
	v.SetDefault("temp.dir", os.TempDir())
	v.SetDefault("workers", 4)
	v.SetDefault("queue_size", 64)
	v.SetDefault("process_timeout", 5*time.Minute)
	v.SetDefault("grpc.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	val := NewValidator().
		Field("BEDROCK_MODEL_ID", c.Bedrock.ModelID, Required).
		Field("BEDROCK_MAX_TOKENS", c.Bedrock.MaxTokens, Positive).
		Field("BEDROCK_TEMPERATURE", c.Bedrock.Temperature, InRange(0, 1)).
		Field("AWS_REGION", c.AWS.Region, Required).
		Field("STORE_BACKEND", c.Store.Backend, OneOf(BackendDynamoDB, BackendSQLite, BackendPostgres)).
		Field("MAX_PDF_SIZE_MB", c.Text.MaxPDFSizeMB, Positive).
		Field("MAX_PROMPT_CHARS", c.Text.MaxPromptChars, Positive)

	switch c.Store.Backend {
	case BackendDynamoDB:
		val.Field("DYNAMODB_TABLE_NAME", c.Store.TableName, Required)
	case BackendSQLite, BackendPostgres:
		val.Field("DB_URL", c.Store.DSN, Required)
	}
	if val.HasErrors() {
		return NewAppError("CONFIG_ERROR", val.ErrorMessage(), ErrConfig)
	}
	return nil
}

// MaxPDFBytes is the size limit of an input document in bytes.
func (c TextConfig) MaxPDFBytes() int64 {
	return int64(c.MaxPDFSizeMB) << 20
}

func (c *Config) String() string {
	return fmt.Sprintf("region=%s model=%s backend=%s table=%s",
		c.AWS.Region, c.Bedrock.ModelID, c.Store.Backend, c.Store.TableName)
}
