package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// RESTClient implements llm.Extractor against the generateContent REST endpoint.
type RESTClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewRESTClient(cfg Config, logger *slog.Logger) (*RESTClient, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, common.NewAppError(common.CodeConfig, "gemini api key is not set", common.ErrInvalidInput)
	}
	return &RESTClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: orDefault(logger),
	}, nil
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

// APIError is the error envelope returned by the REST endpoint.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini %d %s: %s", e.Code, e.Status, e.Message)
}

func (c *RESTClient) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + c.cfg.Model + ":generateContent"
}

func (c *RESTClient) Extract(ctx context.Context, req llm.ExtractRequest) ([]byte, error) {
	rid := common.RequestIDFromContext(ctx)
	start := time.Now()

	body := map[string]any{
		"contents": []content{{
			Role: "user",
			Parts: []part{
				{Text: req.Instructions},
				{InlineData: &inlineData{MimeType: req.Document.MIMEType, Data: req.Document.Base64()}},
			},
		}},
		"generationConfig": map[string]any{
			"responseMimeType": "application/json",
			"responseSchema":   restSchema(req.Schema),
			"temperature":      c.cfg.Temperature,
		},
	}

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"transport", "rest",
		"model", c.cfg.Model,
		"mime", req.Document.MIMEType,
		"bytes", len(req.Document.Data),
	)

	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, c.endpoint(), body, headers, c.logger)
	if err != nil {
		var httpErr *llm.HTTPError
		if errors.As(err, &httpErr) {
			err = decodeAPIError(httpErr)
		}
		c.logger.Error("llm.extract.call_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
		)
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 {
		return nil, errNoCandidates
	}
	var b strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return nil, errNoCandidates
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"bytes", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return []byte(b.String()), nil
}

// decodeAPIError turns an error envelope into *APIError, keeping the HTTP error otherwise.
func decodeAPIError(httpErr *llm.HTTPError) error {
	var env struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(httpErr.Body, &env); err != nil || env.Error == nil {
		return httpErr
	}
	if env.Error.Code == 0 {
		env.Error.Code = httpErr.StatusCode
	}
	return env.Error
}

// restSchema renders the OpenAPI subset the REST API accepts (upper-case type names).
func restSchema(s llm.Schema) map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{"type": "STRING", "description": f.Description}
	}
	return map[string]any{
		"type":       "OBJECT",
		"properties": props,
		"required":   s.Names(),
	}
}
