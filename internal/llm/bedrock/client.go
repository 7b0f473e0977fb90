package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"

	"github.com/kluster66/invoice-extractor/internal/common"
	"github.com/kluster66/invoice-extractor/internal/llm"
)

// API is the slice of the Bedrock Runtime client we call.
type API interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config for the Bedrock client.
type Config struct {
	ModelID     string        // id or catalog alias
	MaxTokens   int           // default 1000
	Temperature float64       // 0..1
	Timeout     time.Duration // per invocation; 0 = caller's context only
}

// Client sends prompts to one Bedrock model and returns its text.
type Client struct {
	cfg     Config
	api     API
	adapter *llm.Adapter
	logger  *slog.Logger
}

func NewClient(cfg Config, api API, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	id, known := llm.ResolveModel(cfg.ModelID)
	if !known {
		logger.Warn("llm.model.not_in_catalog", "model", id)
	}
	cfg.ModelID = id
	return &Client{cfg: cfg, api: api, adapter: llm.NewAdapter(logger), logger: logger}
}

// ModelID is the resolved model id.
func (c *Client) ModelID() string { return c.cfg.ModelID }

// Invoke sends a prepared body to modelID and returns the raw response bytes.
func (c *Client) Invoke(ctx context.Context, modelID string, body []byte) ([]byte, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, classifyError(err)
	}
	return out.Body, nil
}

// Generate builds the provider request for prompt, invokes the model and returns its text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.NewString()
	}
	doc := common.DocumentFromContext(ctx)
	start := time.Now()
	kind := llm.Classify(c.cfg.ModelID)

	c.logger.Info("llm.invoke.start",
		"req_id", rid,
		"document", doc,
		"model", c.cfg.ModelID,
		"provider", kind.String(),
		"temp", c.cfg.Temperature,
		"max_tokens", c.cfg.MaxTokens,
		"prompt_len", len(prompt),
	)

	body, err := c.adapter.BuildRequest(c.cfg.ModelID, prompt, c.cfg.MaxTokens, c.cfg.Temperature)
	if err != nil {
		return "", err
	}
	raw, err := c.Invoke(ctx, c.cfg.ModelID, body)
	if err != nil {
		var ie *InvokeError
		if errors.As(err, &ie) {
			c.logger.Error("llm.invoke.failed",
				"req_id", rid, "document", doc, "model", c.cfg.ModelID,
				"code", ie.Code, "kind", ie.Kind, "retryable", ie.Retryable(),
				"error", ie.Message,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}
		return "", fmt.Errorf("invoke %s: %w", c.cfg.ModelID, err)
	}

	text := c.adapter.ParseResponse(c.cfg.ModelID, raw)
	c.logger.Info("llm.invoke.ok",
		"req_id", rid,
		"document", doc,
		"model", c.cfg.ModelID,
		"raw_bytes", len(raw),
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}
