package llm

import "strings"

var invoiceRules = []string{
	"Extract text exactly as it appears in the document.",
	"If the INCOTERM is FOB, incotermDetails should be the port.",
	"If the INCOTERM is EXW, incotermDetails should be the pickup address.",
	"The HS Code (or NCM code) is a numerical code for customs classification. Extract this code.",
	`If any information is not found, return "Not found".`,
}

// BuildInvoiceInstructions returns the fixed instruction text sent with every proforma invoice.
func BuildInvoiceInstructions() string {
	var b strings.Builder
	b.WriteString("Analyze this proforma invoice and extract the information based on the provided JSON schema. ")
	b.WriteString("Ensure all fields are filled accurately from the document.\n\nImportant Rules:\n")
	for _, r := range invoiceRules {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
