package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

var errEmptyDocument = errors.New("document is empty")

// ReadDocument reads r fully into a Document. name and mimeType are hints;
// the MIME type is sniffed when neither resolves it.
func ReadDocument(r io.Reader, name, mimeType string) (llm.Document, error) {
	if r == nil {
		return llm.Document{}, documentReadError(errors.New("no reader"))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return llm.Document{}, documentReadError(fmt.Errorf("read %s: %w", name, err))
	}
	if len(data) == 0 {
		return llm.Document{}, documentReadError(errEmptyDocument)
	}
	return llm.NewDocument(name, mimeType, data), nil
}

// OpenDocument reads the file at path. Open and read failures are document read errors.
func OpenDocument(path, mimeType string) (llm.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return llm.Document{}, documentReadError(common.WrapError(err, "open document"))
	}
	defer func() { _ = f.Close() }()
	return ReadDocument(f, filepath.Base(path), mimeType)
}
