package pipeline

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// ParseStage turns raw model text into InvoiceData. Every failure is malformed.
type ParseStage struct {
	logger  *slog.Logger
	schema  llm.Schema
	checker *jsonschema.Schema
	lenient bool
}

func NewParseStage(schema llm.Schema, lenient bool, logger *slog.Logger) (*ParseStage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	checker, err := llm.CompileSchema(schema.JSONSchema())
	if err != nil {
		return nil, fmt.Errorf("compile invoice schema: %w", err)
	}
	return &ParseStage{logger: logger, schema: schema, checker: checker, lenient: lenient}, nil
}

func (p *ParseStage) Run(raw []byte) (entity.InvoiceData, error) {
	content := raw
	if p.lenient {
		cleaned, _, err := llm.SanitizeStringFields(raw, p.schema.Names(), p.logger)
		if err != nil {
			return entity.InvoiceData{}, malformedError(err)
		}
		content = cleaned
	}

	if err := llm.ValidateJSON(p.checker, content); err != nil {
		p.logger.Error("pipeline.parse.schema_validation_failed", "error", err, "bytes", len(content))
		return entity.InvoiceData{}, malformedError(err)
	}

	var out entity.InvoiceData
	if err := json.Unmarshal(content, &out); err != nil {
		return entity.InvoiceData{}, malformedError(fmt.Errorf("unmarshal fields: %w", err))
	}
	return out, nil
}
