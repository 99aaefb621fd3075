package main

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proforma-verifier/internal/common"
	"github.com/joseph-ayodele/proforma-verifier/internal/pipeline"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := newRootCommand()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["verify"])
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVerifyCommand_RejectsNonPDF(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"verify", "invoice.docx"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only PDF files are supported")
}

func TestRootCommand_MissingKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"verify", "invoice.pdf"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.api_key")
}

func TestVerifyCommand_MissingFileIsDocumentRead(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("GEMINI_TRANSPORT", "rest")
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"verify", filepath.Join(t.TempDir(), "gone.pdf")})

	err := root.Execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrDocumentRead)
	assert.Equal(t, common.CodeDocumentRead, common.CodeOf(err))
	assert.NotContains(t, out.String(), "requestId")
}
