package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
	"github.com/joseph-ayodele/proforma-verifier/internal/rules"
)

// Config controls retries and parsing.
type Config struct {
	Retry   RetryPolicy
	Lenient bool
	// IsInvalidCredential classifies provider errors that mean the key or model is unusable.
	IsInvalidCredential func(error) bool
}

// ConfigFrom maps the application config section onto the pipeline config.
func ConfigFrom(c common.VerifyConfig, isInvalidCredential func(error) bool) Config {
	return Config{
		Retry:               RetryPolicy{MaxAttempts: c.MaxAttempts, BaseBackoff: c.BaseBackoff},
		Lenient:             c.Lenient,
		IsInvalidCredential: isInvalidCredential,
	}
}

// Verifier runs one proforma invoice through extraction and the rules.
type Verifier struct {
	logger    *slog.Logger
	extractor llm.Extractor
	cfg       Config
	profile   rules.RecipientProfile
	parse     *ParseStage
	sleep     Sleeper
}

func NewVerifier(extractor llm.Extractor, cfg Config, profile rules.RecipientProfile, logger *slog.Logger) (*Verifier, error) {
	if extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if cfg.Retry.BaseBackoff < 0 {
		cfg.Retry.BaseBackoff = 0
	}
	if cfg.IsInvalidCredential == nil {
		cfg.IsInvalidCredential = func(error) bool { return false }
	}
	parse, err := NewParseStage(llm.InvoiceSchema(), cfg.Lenient, logger)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		logger:    logger,
		extractor: extractor,
		cfg:       cfg,
		profile:   profile,
		parse:     parse,
		sleep:     SleepContext,
	}, nil
}

// WithSleeper replaces the backoff wait; used by tests.
func (v *Verifier) WithSleeper(s Sleeper) *Verifier {
	if s != nil {
		v.sleep = s
	}
	return v
}

// VerifyReader reads the document and verifies it.
func (v *Verifier) VerifyReader(ctx context.Context, r io.Reader, name, mimeType string) (entity.VerificationResult, error) {
	doc, err := ReadDocument(r, name, mimeType)
	if err != nil {
		v.logger.Error("pipeline.encode.failed", "req_id", common.RequestIDFromContext(ctx), "name", name, "error", err)
		return entity.VerificationResult{}, err
	}
	return v.Verify(ctx, doc)
}

// VerifyFile opens the document at path and verifies it.
func (v *Verifier) VerifyFile(ctx context.Context, path, mimeType string) (entity.VerificationResult, error) {
	doc, err := OpenDocument(path, mimeType)
	if err != nil {
		v.logger.Error("pipeline.encode.failed", "req_id", common.RequestIDFromContext(ctx), "path", path, "error", err)
		return entity.VerificationResult{}, err
	}
	return v.Verify(ctx, doc)
}

// Verify extracts the invoice fields, retrying transient failures with
// exponential backoff, then evaluates the rules. It returns a complete result
// or an error, never both.
func (v *Verifier) Verify(ctx context.Context, doc llm.Document) (entity.VerificationResult, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()

	if len(doc.Data) == 0 {
		return entity.VerificationResult{}, documentReadError(errEmptyDocument)
	}

	req := llm.ExtractRequest{
		Document:     doc,
		Instructions: llm.BuildInvoiceInstructions(),
		Schema:       llm.InvoiceSchema(),
	}
	maxAttempts := v.cfg.Retry.MaxAttempts

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v.logger.Info("pipeline.extract.attempt",
			"req_id", rid, "attempt", attempt, "max_attempts", maxAttempts,
			"name", doc.Name, "mime", doc.MIMEType, "bytes", len(doc.Data),
		)

		raw, err := v.extractor.Extract(ctx, req)
		if err == nil {
			data, perr := v.parse.Run(raw)
			if perr != nil {
				v.logger.Error("pipeline.parse.failed", "req_id", rid, "attempt", attempt, "error", perr)
				return entity.VerificationResult{}, perr
			}
			res := rules.Evaluate(data, v.profile)
			v.logger.Info("pipeline.verify.ok",
				"req_id", rid,
				"attempts", attempt,
				"company_match", res.CompanyMatch,
				"recipient_match", res.RecipientMatch,
				"incoterm", res.Incoterm,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return res, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			v.logger.Warn("pipeline.verify.aborted", "req_id", rid, "attempt", attempt, "error", ctxErr)
			return entity.VerificationResult{}, abortedError(ctxErr)
		}

		lastErr = err
		v.logger.Warn("pipeline.extract.failed", "req_id", rid, "attempt", attempt, "error", err)
		if attempt == maxAttempts {
			break
		}

		delay := v.cfg.Retry.Delay(attempt)
		v.logger.Info("pipeline.extract.retry", "req_id", rid, "next_attempt", attempt+1, "delay_ms", delay.Milliseconds())
		if err := v.sleep(ctx, delay); err != nil {
			v.logger.Warn("pipeline.verify.aborted", "req_id", rid, "attempt", attempt, "error", err)
			return entity.VerificationResult{}, abortedError(err)
		}
	}

	err := v.extractionError(lastErr, maxAttempts)
	v.logger.Error("pipeline.verify.failed",
		"req_id", rid,
		"attempts", maxAttempts,
		"invalid_credential", IsInvalidCredential(err),
		"error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.VerificationResult{}, err
}

func (v *Verifier) extractionError(err error, attempts int) error {
	if v.cfg.IsInvalidCredential(err) {
		return common.NewAppError(common.CodeInvalidCredential,
			"extraction service rejected the credential; check the API key and model",
			fmt.Errorf("%w: %w", ErrInvalidCredential, err))
	}
	return common.NewAppError(common.CodeExtraction,
		fmt.Sprintf("extraction failed after %d attempts", attempts), err)
}
