package rules

import (
	"strings"

	"github.com/joseph-ayodele/proforma-verifier/constants"
	"github.com/joseph-ayodele/proforma-verifier/internal/entity"
)

// Evaluate derives the match flags from the extracted values, then fills
// defaults and normalizes the INCOTERM. The input is not modified.
func Evaluate(in entity.InvoiceData, profile RecipientProfile) entity.VerificationResult {
	out := entity.VerificationResult{
		CompanyMatch:   CompanyMatch(in.CompanyName, in.BankAccountName),
		RecipientMatch: profile.Match(in.RecipientName, in.RecipientAddress, in.RecipientTaxID),
	}

	d := in
	d.CompanyName = orDefault(in.CompanyName, constants.NotFound)
	d.BankAccountName = orDefault(in.BankAccountName, constants.NotFound)
	d.RecipientName = orDefault(in.RecipientName, constants.NotFound)
	d.RecipientAddress = orDefault(in.RecipientAddress, constants.NotFound)
	d.RecipientTaxID = orDefault(in.RecipientTaxID, constants.NotFound)
	d.HSCode = orDefault(in.HSCode, constants.NotFound)
	d.DevelopmentTime = orDefault(in.DevelopmentTime, constants.NotSpecified)
	d.PaymentTerms = orDefault(in.PaymentTerms, constants.NotSpecified)
	d.Incoterm, d.IncotermDetails = NormalizeIncoterm(in.Incoterm, orDefault(in.IncotermDetails, constants.NotSpecified))

	out.InvoiceData = d
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
