package constants

import "strings"

// Incoterm is an Incoterms 2020 trade term code.
type Incoterm string

const (
	EXW Incoterm = "EXW"
	FCA Incoterm = "FCA"
	CPT Incoterm = "CPT"
	CIP Incoterm = "CIP"
	DAP Incoterm = "DAP"
	DPU Incoterm = "DPU"
	DDP Incoterm = "DDP"
	FAS Incoterm = "FAS"
	FOB Incoterm = "FOB"
	CFR Incoterm = "CFR"
	CIF Incoterm = "CIF"
)

var allIncoterms = []Incoterm{EXW, FCA, CPT, CIP, DAP, DPU, DDP, FAS, FOB, CFR, CIF}

// Placeholders the model (or normalization) uses when no term was found.
// They are never reported as unrecognized.
const (
	IncotermUnknown  = "UNKNOWN"
	IncotermNotFound = "NOT FOUND"
)

// Default field values for the verification result.
const (
	NotFound     = "Not found"
	NotSpecified = "Not specified"
)

// IsIncoterm reports whether code is exactly one of the recognized codes (case-insensitive).
func IsIncoterm(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, t := range allIncoterms {
		if code == string(t) {
			return true
		}
	}
	return false
}
