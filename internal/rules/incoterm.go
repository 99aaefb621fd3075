package rules

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/joseph-ayodele/proforma-verifier/constants"
)

// NormalizeIncoterm uppercases and trims the code and, when it names no known
// INCOTERM, replaces details with a message asking the user to check it.
// details is expected to be already defaulted.
func NormalizeIncoterm(raw, details string) (string, string) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if code == "" {
		return constants.IncotermNotFound, details
	}
	if code == constants.IncotermUnknown || code == constants.IncotermNotFound || recognized(code) {
		return code, details
	}

	suffix := ""
	if meaningfulDetails(details) {
		suffix = fmt.Sprintf(` (Details found: "%s")`, details)
	}
	return code, fmt.Sprintf(`Unrecognized INCOTERM: "%s"%s. Please verify.`, raw, suffix)
}

// IsRecognizedIncoterm reports whether an already-normalized code names a known INCOTERM.
func IsRecognizedIncoterm(code string) bool {
	return recognized(strings.ToUpper(strings.TrimSpace(code)))
}

// recognized accepts values such as "FOB SHANGHAI" or "CIF/Santos": any
// letter-only token that is a known code counts.
func recognized(code string) bool {
	tokens := strings.FieldsFunc(code, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, t := range tokens {
		if constants.IsIncoterm(t) {
			return true
		}
	}
	return false
}

func meaningfulDetails(details string) bool {
	d := strings.TrimSpace(details)
	return d != "" &&
		!strings.EqualFold(d, constants.NotSpecified) &&
		!strings.EqualFold(d, constants.NotFound)
}
