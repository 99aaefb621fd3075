package gemini

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proforma-verifier/internal/llm"
)

func newTestRESTClient(t *testing.T, h http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewRESTClient(Config{APIKey: "test-key", BaseURL: srv.URL + "/v1beta", Model: "gemini-test"}, nil)
	require.NoError(t, err)
	return c
}

func testRequest() llm.ExtractRequest {
	return llm.ExtractRequest{
		Document:     llm.NewDocument("invoice.pdf", "", []byte("%PDF-1.4 test")),
		Instructions: llm.BuildInvoiceInstructions(),
		Schema:       llm.InvoiceSchema(),
	}
}

func TestRESTClient_Extract(t *testing.T) {
	c := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		b, _ := io.ReadAll(r.Body)
		var body struct {
			Contents []struct {
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MimeType string `json:"mime_type"`
						Data     string `json:"data"`
					} `json:"inline_data"`
				} `json:"parts"`
			} `json:"contents"`
			GenerationConfig struct {
				ResponseMimeType string         `json:"responseMimeType"`
				ResponseSchema   map[string]any `json:"responseSchema"`
			} `json:"generationConfig"`
		}
		require.NoError(t, json.Unmarshal(b, &body))
		require.Len(t, body.Contents, 1)
		require.Len(t, body.Contents[0].Parts, 2)
		assert.Contains(t, body.Contents[0].Parts[0].Text, "proforma invoice")
		require.NotNil(t, body.Contents[0].Parts[1].InlineData)
		assert.Equal(t, "application/pdf", body.Contents[0].Parts[1].InlineData.MimeType)
		assert.Equal(t, "JVBERi0xLjQgdGVzdA==", body.Contents[0].Parts[1].InlineData.Data)
		assert.Equal(t, "application/json", body.GenerationConfig.ResponseMimeType)
		assert.Equal(t, "OBJECT", body.GenerationConfig.ResponseSchema["type"])
		assert.Len(t, body.GenerationConfig.ResponseSchema["required"], 10)

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"companyName\":"},{"text":"\"ACME\"}"}]}}]}`))
	})

	out, err := c.Extract(context.Background(), testRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"companyName":"ACME"}`, string(out))
}

func TestRESTClient_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		notFound bool
	}{
		{"entity not found", http.StatusNotFound, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`, true},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid.","status":"INVALID_ARGUMENT"}}`, false},
		{"overloaded, no envelope", http.StatusServiceUnavailable, `upstream busy`, false},
		{"empty candidates", http.StatusOK, `{"candidates":[]}`, false},
		{"not json", http.StatusOK, `<html>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestRESTClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Extract(context.Background(), testRequest())
			require.Error(t, err)
			assert.Equal(t, tt.notFound, IsEntityNotFound(err))
		})
	}
}

func TestNewRESTClient_RequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	_, err := NewRESTClient(Config{}, nil)
	assert.Error(t, err)

	t.Setenv("API_KEY", "fallback")
	c, err := NewRESTClient(Config{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", c.cfg.APIKey)
	assert.Equal(t, DefaultModel, c.cfg.Model)
	assert.Equal(t, DefaultBaseURL+"/models/"+DefaultModel+":generateContent", c.endpoint())
}
