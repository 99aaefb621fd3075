package server

import (
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/joseph-ayodele/proforma-verifier/constants"
	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/export"
	"github.com/joseph-ayodele/proforma-verifier/internal/pipeline"
)

// VerifyResponse is the JSON body of POST /api/verify.
type VerifyResponse struct {
	Success           bool                       `json:"success"`
	RequestID         string                     `json:"requestId,omitempty"`
	Valid             bool                       `json:"valid"`
	Result            *entity.VerificationResult `json:"result,omitempty"`
	Error             string                     `json:"error,omitempty"`
	InvalidCredential bool                       `json:"invalidCredential,omitempty"`
}

func (s *Server) handleVerify(c *fiber.Ctx) error {
	ctx := c.UserContext()
	rid := common.RequestIDFromContext(ctx)

	fh, err := c.FormFile("file")
	if err != nil {
		return s.writeError(c, common.NewAppError(common.CodeInvalidInput, "no file uploaded; use form field 'file'", common.ErrInvalidInput))
	}

	declared := fh.Header.Get(fiber.HeaderContentType)
	if !isPDFUpload(fh.Filename, declared) {
		return s.writeError(c, common.NewAppError(common.CodeUnsupportedType,
			fmt.Sprintf("only PDF files are supported, got %q", fh.Filename), common.ErrInvalidInput))
	}

	f, err := fh.Open()
	if err != nil {
		return s.writeError(c, common.NewAppError(common.CodeDocumentRead, "open upload", fmt.Errorf("%w: %w", pipeline.ErrDocumentRead, err)))
	}
	defer func() { _ = f.Close() }()

	doc, err := pipeline.ReadDocument(f, fh.Filename, declared)
	if err != nil {
		return s.writeError(c, err)
	}

	s.logger.Info("http.verify.start", "req_id", rid, "file", fh.Filename, "bytes", len(doc.Data))

	res, err := s.verifier.Verify(ctx, doc)
	if err != nil {
		return s.writeError(c, err)
	}

	if strings.EqualFold(c.Query("format"), "xlsx") {
		b, err := s.exporter.VerificationXLSX(res, export.Meta{
			RequestID:  rid,
			FileName:   fh.Filename,
			VerifiedAt: time.Now(),
		})
		if err != nil {
			return s.writeError(c, common.NewAppError(common.CodeInternal, "build workbook", err))
		}
		c.Set(fiber.HeaderContentType, constants.MimeXLSX)
		c.Set(fiber.HeaderContentDisposition, attachment(xlsxName(fh.Filename)))
		return c.Send(b)
	}

	return c.JSON(VerifyResponse{
		Success:   true,
		RequestID: rid,
		Valid:     res.Valid(),
		Result:    &res,
	})
}

func isPDFUpload(name, declared string) bool {
	if constants.IsAllowedExt(filepath.Ext(name)) {
		return true
	}
	mt, _, err := mime.ParseMediaType(declared)
	return err == nil && mt == constants.MimePDF
}

// attachment quotes or RFC 2231-encodes the file name as needed.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func xlsxName(upload string) string {
	base := strings.TrimSuffix(filepath.Base(upload), filepath.Ext(upload))
	if base == "" || base == "." {
		base = "verification"
	}
	return base + "-verification.xlsx"
}

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	switch common.CodeOf(err) {
	case common.CodeInvalidInput, common.CodeDocumentRead:
		return fiber.StatusBadRequest
	case common.CodeInvalidCredential:
		return fiber.StatusUnauthorized
	case common.CodeUnsupportedType:
		return fiber.StatusUnsupportedMediaType
	case common.CodeMalformedResponse:
		return fiber.StatusUnprocessableEntity
	case common.CodeExtraction:
		return fiber.StatusBadGateway
	case common.CodeUnavailable:
		return fiber.StatusServiceUnavailable
	case common.CodeTimeout:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	rid := common.RequestIDFromContext(c.UserContext())
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("http.verify.failed", "req_id", rid, "status", status, "error", err)
	} else {
		s.logger.Warn("http.verify.rejected", "req_id", rid, "status", status, "error", err)
	}
	return c.Status(status).JSON(VerifyResponse{
		Success:           false,
		RequestID:         rid,
		Error:             err.Error(),
		InvalidCredential: pipeline.IsInvalidCredential(err),
	})
}

// handleFiberError renders framework errors (body too large, unknown route)
// in the same envelope.
func (s *Server) handleFiberError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(VerifyResponse{Success: false, Error: err.Error()})
}
