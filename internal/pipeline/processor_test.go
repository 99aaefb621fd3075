package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
	"github.com/joseph-ayodele/proforma-verifier/internal/rules"
)

var errNotFound = errors.New("googleapi: Error 404: Requested entity was not found.")

type stubExtractor struct {
	mu      sync.Mutex
	calls   int
	answers []func() ([]byte, error)
	last    llm.ExtractRequest
}

func (s *stubExtractor) Extract(_ context.Context, req llm.ExtractRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	i := s.calls
	s.calls++
	if i >= len(s.answers) {
		i = len(s.answers) - 1
	}
	return s.answers[i]()
}

func ok(body string) func() ([]byte, error) {
	return func() ([]byte, error) { return []byte(body), nil }
}

func fail(err error) func() ([]byte, error) {
	return func() ([]byte, error) { return nil, err }
}

type fakeSleeper struct {
	delays []time.Duration
	err    error
}

func (f *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	f.delays = append(f.delays, d)
	return f.err
}

func validBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(map[string]string{
		"companyName":      "Foshan Metals Co",
		"bankAccountName":  "FOSHAN METALS CO",
		"developmentTime":  "30 days",
		"paymentTerms":     "30% deposit",
		"incoterm":         "fob",
		"incotermDetails":  "Shenzhen",
		"recipientName":    "Guangzhou Baiyun Imports",
		"recipientAddress": "8 Thomson Road, Hong Kong",
		"recipientTaxID":   "76303593",
		"hsCode":           "7318.15",
	})
	require.NoError(t, err)
	return string(b)
}

func pdfDoc() llm.Document {
	return llm.NewDocument("invoice.pdf", "", []byte("%PDF-1.4 proforma"))
}

func newTestVerifier(t *testing.T, ext llm.Extractor, sleeper *fakeSleeper) *Verifier {
	t.Helper()
	cfg := Config{
		Retry: DefaultRetryPolicy(),
		IsInvalidCredential: func(err error) bool {
			return err != nil && strings.Contains(err.Error(), "Requested entity was not found")
		},
	}
	v, err := NewVerifier(ext, cfg, rules.DefaultRecipientProfile(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return v.WithSleeper(sleeper.Sleep)
}

func TestVerify_Success(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){ok(validBody(t))}}
	sl := &fakeSleeper{}
	v := newTestVerifier(t, ext, sl)

	res, err := v.Verify(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, 1, ext.calls)
	assert.Empty(t, sl.delays)
	assert.True(t, res.CompanyMatch)
	assert.True(t, res.RecipientMatch)
	assert.Equal(t, "FOB", res.Incoterm)
	assert.Equal(t, "Shenzhen", res.IncotermDetails)

	assert.Equal(t, "application/pdf", ext.last.Document.MIMEType)
	assert.Equal(t, llm.BuildInvoiceInstructions(), ext.last.Instructions)
	assert.Len(t, ext.last.Schema.Fields, 10)
}

func TestVerify_RetriesThenSucceeds(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){
		fail(errors.New("503 overloaded")),
		fail(errors.New("503 overloaded")),
		ok(validBody(t)),
	}}
	sl := &fakeSleeper{}
	v := newTestVerifier(t, ext, sl)

	_, err := v.Verify(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, 3, ext.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays)
}

func TestVerify_ExhaustsRetries(t *testing.T) {
	last := errors.New("third failure")
	ext := &stubExtractor{answers: []func() ([]byte, error){
		fail(errors.New("first failure")),
		fail(errors.New("second failure")),
		fail(last),
	}}
	sl := &fakeSleeper{}
	v := newTestVerifier(t, ext, sl)

	_, err := v.Verify(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.Equal(t, 3, ext.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sl.delays)
	assert.ErrorIs(t, err, last)
	assert.Equal(t, common.CodeExtraction, common.CodeOf(err))
	assert.False(t, IsInvalidCredential(err))
}

func TestVerify_MalformedIsTerminal(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "Sorry, I cannot read this document."},
		{"array", `[{"companyName":"x"}]`},
		{"object field", `{"companyName":{"name":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{answers: []func() ([]byte, error){ok(tt.body)}}
			sl := &fakeSleeper{}
			v := newTestVerifier(t, ext, sl)

			_, err := v.Verify(context.Background(), pdfDoc())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, common.CodeMalformedResponse, common.CodeOf(err))
			assert.Equal(t, 1, ext.calls)
			assert.Empty(t, sl.delays)
		})
	}
}

func TestVerify_DefaultConfigIsStrict(t *testing.T) {
	t.Setenv("VERIFY_LENIENT", "")
	appCfg, err := common.LoadConfig("")
	require.NoError(t, err)

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"companyName":"ACME"}`},
		{"code fence", "```json\n" + validBody(t) + "\n```"},
		{"number field", strings.Replace(validBody(t), `"76303593"`, `76303593`, 1)},
		{"null field", strings.Replace(validBody(t), `"7318.15"`, `null`, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext := &stubExtractor{answers: []func() ([]byte, error){ok(tt.body)}}
			sl := &fakeSleeper{}
			v, err := NewVerifier(ext, ConfigFrom(appCfg.Verify, nil), rules.DefaultRecipientProfile(),
				slog.New(slog.NewTextHandler(io.Discard, nil)))
			require.NoError(t, err)
			v.WithSleeper(sl.Sleep)

			_, err = v.Verify(context.Background(), pdfDoc())
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.Equal(t, common.CodeMalformedResponse, common.CodeOf(err))
			assert.Equal(t, 1, ext.calls)
			assert.Empty(t, sl.delays)
		})
	}
}

func TestVerify_LenientFillsDefaults(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){ok("```json\n{\"companyName\":\"ACME\",\"hsCode\":null,\"recipientTaxID\":76303593}\n```")}}
	v := newTestVerifier(t, ext, &fakeSleeper{})
	v.parse.lenient = true

	res, err := v.Verify(context.Background(), pdfDoc())
	require.NoError(t, err)
	assert.Equal(t, "ACME", res.CompanyName)
	assert.Equal(t, "Not found", res.BankAccountName)
	assert.Equal(t, "Not found", res.HSCode)
	assert.Equal(t, "76303593", res.RecipientTaxID)
	assert.Equal(t, "NOT FOUND", res.Incoterm)
	assert.False(t, res.CompanyMatch)
}

func TestVerify_InvalidCredential(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){fail(errNotFound)}}
	sl := &fakeSleeper{}
	v := newTestVerifier(t, ext, sl)

	_, err := v.Verify(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.True(t, IsInvalidCredential(err))
	assert.ErrorIs(t, err, errNotFound)
	assert.Equal(t, common.CodeInvalidCredential, common.CodeOf(err))
	assert.Equal(t, 3, ext.calls)
}

func TestVerify_CancelledDuringBackoff(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){fail(errors.New("boom"))}}
	sl := &fakeSleeper{err: context.Canceled}
	v := newTestVerifier(t, ext, sl)

	_, err := v.Verify(context.Background(), pdfDoc())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, common.CodeTimeout, common.CodeOf(err))
	assert.Equal(t, 1, ext.calls)
	assert.Len(t, sl.delays, 1)
}

func TestVerify_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ext := &stubExtractor{answers: []func() ([]byte, error){func() ([]byte, error) {
		cancel()
		return nil, context.Canceled
	}}}
	sl := &fakeSleeper{}
	v := newTestVerifier(t, ext, sl)

	_, err := v.Verify(ctx, pdfDoc())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ext.calls)
	assert.Empty(t, sl.delays)
}

func TestVerify_EmptyDocument(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){ok(validBody(t))}}
	v := newTestVerifier(t, ext, &fakeSleeper{})

	_, err := v.Verify(context.Background(), llm.Document{Name: "empty.pdf"})
	assert.ErrorIs(t, err, ErrDocumentRead)
	assert.Equal(t, 0, ext.calls)
}

func TestVerifyReader(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){ok(validBody(t))}}
	v := newTestVerifier(t, ext, &fakeSleeper{})

	res, err := v.VerifyReader(context.Background(), strings.NewReader("%PDF-1.4 data"), "upload", "")
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, "application/pdf", ext.last.Document.MIMEType)

	_, err = v.VerifyReader(context.Background(), iotest.ErrReader(errors.New("disk gone")), "invoice.pdf", "")
	assert.ErrorIs(t, err, ErrDocumentRead)
	assert.Equal(t, common.CodeDocumentRead, common.CodeOf(err))
	assert.Equal(t, 1, ext.calls)
}

func TestNewVerifier_RequiresExtractor(t *testing.T) {
	_, err := NewVerifier(nil, Config{}, rules.DefaultRecipientProfile(), nil)
	assert.Error(t, err)
}

func TestVerifyFile(t *testing.T) {
	ext := &stubExtractor{answers: []func() ([]byte, error){ok(validBody(t))}}
	v := newTestVerifier(t, ext, &fakeSleeper{})

	path := filepath.Join(t.TempDir(), "pi-001.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 proforma"), 0o600))

	res, err := v.VerifyFile(context.Background(), path, "")
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Equal(t, "pi-001.pdf", ext.last.Document.Name)
	assert.Equal(t, "application/pdf", ext.last.Document.MIMEType)

	_, err = v.VerifyFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentRead)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, common.CodeDocumentRead, common.CodeOf(err))
	assert.Contains(t, err.Error(), "open document")
	assert.Equal(t, 1, ext.calls)
}
