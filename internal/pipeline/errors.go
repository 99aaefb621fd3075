package pipeline

import (
	"errors"
	"fmt"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
)

var (
	// ErrDocumentRead means the uploaded document could not be read. Never retried.
	ErrDocumentRead = errors.New("document read failed")
	// ErrMalformedResponse means the model answered with text that is not the expected JSON. Never retried.
	ErrMalformedResponse = errors.New("malformed extraction response")
	// ErrInvalidCredential means the extraction service rejected the configured key or model.
	ErrInvalidCredential = errors.New("invalid extraction service credential")
)

// IsInvalidCredential reports whether err ended in an invalid-credential condition.
func IsInvalidCredential(err error) bool {
	return errors.Is(err, ErrInvalidCredential)
}

func documentReadError(err error) error {
	return common.NewAppError(common.CodeDocumentRead, "read document", fmt.Errorf("%w: %w", ErrDocumentRead, err))
}

func malformedError(err error) error {
	return common.NewAppError(common.CodeMalformedResponse, "extraction service returned malformed data", fmt.Errorf("%w: %w", ErrMalformedResponse, err))
}

func abortedError(err error) error {
	return common.NewAppError(common.CodeTimeout, "verification aborted", err)
}
