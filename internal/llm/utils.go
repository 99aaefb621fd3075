package llm

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/proforma-verifier/constants"
)

// Document is an uploaded file ready to be sent inline to the model.
type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

// NewDocument builds a Document, resolving the MIME type from the declared value,
// then the file extension, then the content itself.
func NewDocument(name, declaredMIME string, data []byte) Document {
	return Document{
		Name:     name,
		MIMEType: resolveMIME(name, declaredMIME, data),
		Data:     data,
	}
}

// Base64 returns the standard base64 encoding of the document bytes.
func (d Document) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

func resolveMIME(name, declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != constants.MimeOctetStream {
		return mt
	}
	if ext := constants.NormalizeExt(filepath.Ext(name)); ext != "" {
		if mt := mime.TypeByExtension("." + ext); mt != "" {
			mt, _, _ = strings.Cut(mt, ";")
			return mt
		}
		if ext == "pdf" {
			return constants.MimePDF
		}
	}
	if len(data) > 0 {
		mt, _, _ := strings.Cut(http.DetectContentType(data), ";")
		return mt
	}
	return constants.MimeOctetStream
}
