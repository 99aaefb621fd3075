package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/proforma-verifier/constants"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
	"github.com/joseph-ayodele/proforma-verifier/internal/rules"
)

const SheetName = "Verification"

// Check column values.
const (
	CheckMatch      = "MATCH"
	CheckNoMatch    = "NO MATCH"
	CheckOK         = "OK"
	CheckVerify     = "VERIFY"
	CheckMissing    = "MISSING"
	OverallValid    = "VALID"
	OverallNotValid = "NOT VALID"
)

// Meta describes where a result came from.
type Meta struct {
	RequestID  string
	FileName   string
	VerifiedAt time.Time
}

// Service produces XLSX bytes for verification results.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

type fieldRow struct {
	label string
	value string
	check string
}

func matchCheck(ok bool) string {
	if ok {
		return CheckMatch
	}
	return CheckNoMatch
}

func presenceCheck(v string) string {
	if v == "" || v == constants.NotFound || v == constants.NotSpecified {
		return CheckMissing
	}
	return ""
}

func incotermCheck(code string) string {
	switch {
	case code == constants.IncotermNotFound || code == constants.IncotermUnknown:
		return CheckMissing
	case rules.IsRecognizedIncoterm(code):
		return CheckOK
	default:
		return CheckVerify
	}
}

func rowsFor(r entity.VerificationResult) []fieldRow {
	company := matchCheck(r.CompanyMatch)
	recipient := matchCheck(r.RecipientMatch)
	return []fieldRow{
		{"Company Name", r.CompanyName, company},
		{"Bank Account Name", r.BankAccountName, company},
		{"Development Time", r.DevelopmentTime, presenceCheck(r.DevelopmentTime)},
		{"Payment Terms", r.PaymentTerms, presenceCheck(r.PaymentTerms)},
		{"INCOTERM", r.Incoterm, incotermCheck(r.Incoterm)},
		{"INCOTERM Details", r.IncotermDetails, presenceCheck(r.IncotermDetails)},
		{"Recipient Name", r.RecipientName, recipient},
		{"Recipient Address", r.RecipientAddress, recipient},
		{"Recipient Tax ID", r.RecipientTaxID, recipient},
		{"HS Code", r.HSCode, presenceCheck(r.HSCode)},
	}
}

// VerificationXLSX returns a workbook with one "Verification" sheet: the meta
// block, one row per extracted field and the overall verdict.
func (s *Service) VerificationXLSX(r entity.VerificationResult, meta Meta) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_error", "error", err)
		}
	}()

	// Rename the default sheet so the workbook holds exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("xlsx style: %w", err)
	}

	row := 1
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(SheetName, cell, v)
	}
	boldRow := func() {
		from, _ := excelize.CoordinatesToCellName(1, row)
		to, _ := excelize.CoordinatesToCellName(3, row)
		_ = f.SetCellStyle(SheetName, from, to, bold)
	}

	verifiedAt := meta.VerifiedAt
	if verifiedAt.IsZero() {
		verifiedAt = time.Now()
	}
	for _, kv := range [][2]string{
		{"Request ID", meta.RequestID},
		{"File", meta.FileName},
		{"Verified At", verifiedAt.UTC().Format(time.RFC3339)},
	} {
		write(1, kv[0])
		write(2, kv[1])
		row++
	}
	row++

	write(1, "Field")
	write(2, "Value")
	write(3, "Check")
	boldRow()
	row++

	for _, fr := range rowsFor(r) {
		write(1, fr.label)
		write(2, fr.value)
		if fr.check != "" {
			write(3, fr.check)
		}
		row++
	}

	row++
	write(1, "Overall")
	if r.Valid() {
		write(2, OverallValid)
	} else {
		write(2, OverallNotValid)
	}
	boldRow()

	_ = f.SetColWidth(SheetName, "A", "A", 22)
	_ = f.SetColWidth(SheetName, "B", "B", 60)
	_ = f.SetColWidth(SheetName, "C", "C", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"req_id", meta.RequestID,
		"valid", r.Valid(),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
