package textextract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	out  string
	errb string
	err  error
	args []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.args = append([]string{name}, args...)
	return []byte(s.out), []byte(s.errb), s.err
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtract_PdftotextPages(t *testing.T) {
	path := writeFile(t, "%PDF-1.7 fake")
	runner := &stubRunner{out: "Facture FAC-1\n\n\n\nTotal   12,00 €\f\fPage trois\f"}
	e := NewExtractor(Config{}, nil).WithRunner(runner)

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "pdftotext", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "--- Page 1 ---\nFacture FAC-1\n\nTotal 12,00 €\n\n--- Page 3 ---\nPage trois", res.Text)
	assert.Equal(t, []string{"pdftotext", "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-"}, runner.args)
}

func TestExtract_FallsBackToGoReader(t *testing.T) {
	path := writeFile(t, "%PDF-1.4 fake")
	runner := &stubRunner{err: errors.New("exec: not found")}
	e := NewExtractor(Config{}, nil).
		WithRunner(runner).
		WithPageReader(func(string) ([]string, error) { return []string{"", "Montant: 10.00"}, nil })

	res, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "pdf-go", res.Method)
	assert.Equal(t, "--- Page 2 ---\nMontant: 10.00", res.Text)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_NoText(t *testing.T) {
	path := writeFile(t, "%PDF-1.4 scanned")
	tests := []struct {
		name     string
		cfg      Config
		reader   PageReader
		runner   *stubRunner
		contains string
	}{
		{
			name:   "both empty",
			runner: &stubRunner{out: " \f \n"},
			reader: func(string) ([]string, error) { return []string{"  "}, nil },
		},
		{
			name:   "reader error",
			runner: &stubRunner{err: errors.New("boom")},
			reader: func(string) ([]string, error) { return nil, errors.New("corrupt xref") },
		},
		{
			name:   "fallback disabled",
			cfg:    Config{DisableFallback: true},
			runner: &stubRunner{out: ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(tt.cfg, nil).WithRunner(tt.runner).WithPageReader(tt.reader)
			text, err := e.ExtractText(context.Background(), path)
			assert.ErrorIs(t, err, ErrNoText)
			assert.Empty(t, text)
		})
	}
}

func TestExtract_RejectsInvalidFiles(t *testing.T) {
	t.Run("not a pdf", func(t *testing.T) {
		path := writeFile(t, "hello world")
		_, err := NewExtractor(Config{}, nil).WithRunner(&stubRunner{}).Extract(context.Background(), path)
		assert.ErrorIs(t, err, ErrNotPDF)
	})
	t.Run("too large", func(t *testing.T) {
		path := writeFile(t, "%PDF-1.4 0123456789")
		_, err := NewExtractor(Config{MaxBytes: 8}, nil).WithRunner(&stubRunner{}).Extract(context.Background(), path)
		assert.ErrorIs(t, err, ErrTooLarge)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := NewExtractor(Config{}, nil).Extract(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b\n\nc", Normalize("a\t\tb   \r\n\r\n\r\n\r\nc  "))
	assert.Equal(t, "", Normalize(""))
}
