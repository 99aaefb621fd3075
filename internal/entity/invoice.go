package entity

// InvoiceData holds the facts extracted from a proforma invoice.
// JSON names match the extraction schema sent to the model.
type InvoiceData struct {
	CompanyName      string `json:"companyName"`
	BankAccountName  string `json:"bankAccountName"`
	DevelopmentTime  string `json:"developmentTime"`
	PaymentTerms     string `json:"paymentTerms"`
	Incoterm         string `json:"incoterm"`
	IncotermDetails  string `json:"incotermDetails"`
	RecipientName    string `json:"recipientName"`
	RecipientAddress string `json:"recipientAddress"`
	RecipientTaxID   string `json:"recipientTaxID"`
	HSCode           string `json:"hsCode"`
}

// VerificationResult is InvoiceData after normalization plus the derived match flags.
// It is produced once per successful verification and passed by value.
type VerificationResult struct {
	InvoiceData
	CompanyMatch   bool `json:"companyMatch"`
	RecipientMatch bool `json:"recipientMatch"`
}

// Valid is the overall verdict shown to the user.
func (r VerificationResult) Valid() bool {
	return r.CompanyMatch && r.RecipientMatch
}
