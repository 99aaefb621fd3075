package rules

import (
	"strings"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
)

// CompanyMatch reports whether the issuing company and the bank account holder
// are the same party. Both must be non-empty; comparison ignores case and
// surrounding whitespace.
func CompanyMatch(companyName, bankAccountName string) bool {
	a := strings.TrimSpace(companyName)
	b := strings.TrimSpace(bankAccountName)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// RecipientProfile is the consignee an invoice must be addressed to. Every term
// must appear (case-insensitive) in its field for the recipient to match.
type RecipientProfile struct {
	NameTerms    []string
	AddressTerms []string
	TaxIDTerms   []string
}

func DefaultRecipientProfile() RecipientProfile {
	return RecipientProfile{
		NameTerms:    []string{"GUANGZHOU", "BAIYUN"},
		AddressTerms: []string{"THOMSON", "HONG KONG"},
		TaxIDTerms:   []string{"76303593"},
	}
}

// RecipientProfileFrom builds a profile from config, falling back to the default
// terms for any empty list.
func RecipientProfileFrom(c common.RecipientConfig) RecipientProfile {
	p := DefaultRecipientProfile()
	if len(c.NameTerms) > 0 {
		p.NameTerms = c.NameTerms
	}
	if len(c.AddressTerms) > 0 {
		p.AddressTerms = c.AddressTerms
	}
	if len(c.TaxIDTerms) > 0 {
		p.TaxIDTerms = c.TaxIDTerms
	}
	return p
}

// Match reports whether all terms are present.
func (p RecipientProfile) Match(name, address, taxID string) bool {
	return containsAll(name, p.NameTerms) &&
		containsAll(address, p.AddressTerms) &&
		containsAll(taxID, p.TaxIDTerms)
}

func containsAll(value string, terms []string) bool {
	v := strings.ToUpper(value)
	for _, t := range terms {
		if !strings.Contains(v, strings.ToUpper(t)) {
			return false
		}
	}
	return true
}
