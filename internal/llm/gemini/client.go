package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// Client implements llm.Extractor on top of the Gemini Go SDK.
type Client struct {
	cfg    Config
	genai  *genai.Client
	logger *slog.Logger
}

// NewClient opens an SDK client. Close it when done.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	logger = orDefault(logger)
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "gemini api key is not set", common.ErrInvalidInput)
	}

	gc, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{cfg: cfg, genai: gc, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// Extract sends the instructions and the inline document in one request and
// returns the concatenated text parts of the first candidate.
func (c *Client) Extract(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	ctx, cancel := common.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	model := c.genai.GenerativeModel(c.cfg.Model)
	model.SetTemperature(c.cfg.Temperature)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(req.Schema)

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"transport", "sdk",
		"model", c.cfg.Model,
		"mime", req.Document.MIMEType,
		"bytes", len(req.Document.Data),
	)

	resp, err := model.GenerateContent(ctx,
		genai.Text(req.Instructions),
		genai.Blob{MIMEType: req.Document.MIMEType, Data: req.Document.Data},
	)
	if err != nil {
		c.logger.Error("llm.extract.call_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	text, err := responseText(resp)
	if err != nil {
		c.logger.Error("llm.extract.empty_response",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"bytes", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(text), nil
}

var errNoCandidates = errors.New("no candidates in gemini response")

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errNoCandidates
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", errNoCandidates
	}
	return b.String(), nil
}

func toGenaiSchema(s llm.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = &genai.Schema{Type: genai.TypeString, Description: f.Description}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Names(),
	}
}
