package llm

// Field is one required string property of an extraction schema.
type Field struct {
	Name        string
	Description string
}

// Schema is a flat object of required string fields. It is rendered both as the
// provider's response schema and as a JSON Schema for local validation.
type Schema struct {
	Fields []Field
}

// InvoiceSchema lists the ten proforma invoice fields, in display order.
func InvoiceSchema() Schema {
	return Schema{Fields: []Field{
		{"companyName", "The name of the company issuing the invoice."},
		{"bankAccountName", "The name of the bank account holder."},
		{"developmentTime", "The development or lead time for the product."},
		{"paymentTerms", "The payment terms (e.g., 30% deposit)."},
		{"incoterm", "The INCOTERM (e.g., FOB, EXW)."},
		{"incotermDetails", "Details for the INCOTERM (e.g., port for FOB, address for EXW)."},
		{"recipientName", "The name of the recipient/consignee."},
		{"recipientAddress", "The full address of the recipient."},
		{"recipientTaxID", "The Tax ID or registration number of the recipient."},
		{"hsCode", "The Harmonized System (HS) Code or NCM code for the product(s)."},
	}}
}

// Names returns the field names; all of them are required.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// JSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = map[string]any{
			"type":        "string",
			"description": f.Description,
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   s.Names(),
	}
}
