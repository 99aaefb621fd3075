package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

// NewExtractor builds the extractor for the configured transport. The returned
// close func releases SDK resources and is always safe to call.
func NewExtractor(ctx context.Context, c common.GeminiConfig, logger *slog.Logger) (llm.Extractor, func() error, error) {
	cfg := ConfigFrom(c)
	switch c.Transport {
	case common.TransportREST:
		rc, err := NewRESTClient(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() error { return nil }, nil
	case common.TransportSDK, "":
		sc, err := NewClient(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return sc, sc.Close, nil
	default:
		return nil, nil, common.NewAppError(common.CodeConfig,
			fmt.Sprintf("unknown gemini transport %q", c.Transport), common.ErrInvalidInput)
	}
}
