package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/entity"
	"github.com/kluster66/invoice-extractor/internal/llm/bedrock"
	"github.com/kluster66/invoice-extractor/internal/textextract"
)

type stubText struct {
	text string
	err  error
	path string
}

func (s *stubText) ExtractText(_ context.Context, path string) (string, error) {
	s.path = path
	return s.text, s.err
}

type stubModel struct {
	answer string
	err    error
	prompt string
}

func (s *stubModel) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.answer, s.err
}

type memSaver struct {
	mu    sync.Mutex
	saved []entity.InvoiceRecord
	err   error
}

func (m *memSaver) Save(_ context.Context, rec entity.InvoiceRecord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, rec)
	return "id-" + rec.SourceFilename, nil
}

var fixedNow = func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600)) }

func newProc(text *stubText, model *stubModel, saver *memSaver) *Processor {
	return NewProcessor(Config{Now: fixedNow}, text, model, saver, nil)
}

func TestRun_JSONAnswer(t *testing.T) {
	answer := "```json\n{\"fournisseur\": \"ACME\", \"montant_ht\": 1500.50, \"numero_facture\": \"F-1\", \"date_facture\": \"2024-01-15\", \"tva\": 20}\n```"
	text := &stubText{text: "--- Page 1 ---\nFacture F-1"}
	model := &stubModel{answer: answer}
	saver := &memSaver{}

	rec, err := newProc(text, model, saver).Run(context.Background(), Document{Path: "/tmp/in/acme.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "id-acme.pdf", rec.ID)
	assert.Equal(t, "ACME", entity.StringOrEmpty(rec.Supplier))
	assert.True(t, decimal.RequireFromString("1500.50").Equal(*rec.AmountExclTax))
	assert.Equal(t, "acme.pdf", rec.SourceFilename)
	assert.Equal(t, "/tmp/in/acme.pdf", rec.SourcePath)
	assert.Equal(t, "2024-02-01T09:00:00Z", rec.ExtractionTimestamp)
	assert.Equal(t, json.Number("20"), rec.ExtraFields["tva"])
	assert.JSONEq(t, `{"fournisseur": "ACME", "montant_ht": 1500.50, "numero_facture": "F-1", "date_facture": "2024-01-15", "tva": 20}`, rec.RawPayload)

	assert.Equal(t, "/tmp/in/acme.pdf", text.path)
	assert.Contains(t, model.prompt, "Facture F-1")
	assert.Contains(t, model.prompt, "acme.pdf")
	require.Len(t, saver.saved, 1)
	assert.Empty(t, saver.saved[0].ID)
}

func TestRun_ManualFallbackBuildsMinimalRecord(t *testing.T) {
	model := &stubModel{answer: "Facture FAC-2024-001, Fournisseur: ACME, Montant: 1500.50€, Date: 2024-01-15"}
	rec, err := newProc(&stubText{text: "x"}, model, &memSaver{}).Run(context.Background(), Document{Path: "f.pdf"})
	require.NoError(t, err)

	assert.Equal(t, "FAC-2024-001", entity.StringOrEmpty(rec.InvoiceNumber))
	assert.Equal(t, "ACME", entity.StringOrEmpty(rec.Supplier))
	require.NotNil(t, rec.AmountExclTax)
	assert.True(t, decimal.RequireFromString("1500.50").Equal(*rec.AmountExclTax))
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, entity.StringOrEmpty(rec.InvoiceDate))
}

func TestRun_CorrectsSupplierFromFilename(t *testing.T) {
	model := &stubModel{answer: `{"fournisseur": "BOARDRIDERS TRADING ESPAÑA", "numero_facture": "T-1"}`}
	rec, err := newProc(&stubText{text: "x"}, model, &memSaver{}).
		Run(context.Background(), Document{Path: "/tmp/abc.pdf", Filename: "2140 TELEFONICA invoice.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "TELEFONICA", entity.StringOrEmpty(rec.Supplier))
	assert.Contains(t, rec.RawPayload, "BOARDRIDERS")
}

func TestRun_ModelFilenameWins(t *testing.T) {
	model := &stubModel{answer: `{"nom_fichier": "facture.pdf"}`}
	rec, err := newProc(&stubText{text: "x"}, model, &memSaver{}).Run(context.Background(), Document{Path: "/tmp/upload-1.pdf"})
	require.NoError(t, err)
	assert.Equal(t, "facture.pdf", rec.SourceFilename)
}

func TestRun_TruncatesLongText(t *testing.T) {
	model := &stubModel{answer: "{}"}
	p := NewProcessor(Config{MaxPromptChars: 10, Now: fixedNow}, &stubText{text: strings.Repeat("a", 50)}, model, &memSaver{}, nil)
	_, err := p.Run(context.Background(), Document{Path: "f.pdf"})
	require.NoError(t, err)
	assert.Contains(t, model.prompt, strings.Repeat("a", 10)+"... [texte tronqué]")
	assert.NotContains(t, model.prompt, strings.Repeat("a", 11))
}

func TestRun_StageFailures(t *testing.T) {
	throttled := &bedrock.InvokeError{Kind: bedrock.KindThrottled, Code: "ThrottlingException", Message: "slow down", Err: &types.ThrottlingException{}}
	tests := []struct {
		name  string
		text  *stubText
		model *stubModel
		saver *memSaver
		stage constants.Stage
		kind  bedrock.ErrorKind
	}{
		{"no text", &stubText{err: textextract.ErrNoText}, &stubModel{}, &memSaver{}, constants.StageTextExtraction, ""},
		{"throttled", &stubText{text: "x"}, &stubModel{err: throttled}, &memSaver{}, constants.StageModel, bedrock.KindThrottled},
		{"store down", &stubText{text: "x"}, &stubModel{answer: "{}"}, &memSaver{err: errors.New("unavailable")}, constants.StagePersistence, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newProc(tt.text, tt.model, tt.saver).Run(context.Background(), Document{Path: "f.pdf"})
			require.Error(t, err)
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, tt.kind, se.Kind)
			assert.Equal(t, tt.stage, StageOf(err))
			assert.Empty(t, tt.saver.saved)
		})
	}
}

func TestProcess_Payloads(t *testing.T) {
	ok := newProc(&stubText{text: "x"}, &stubModel{answer: `{"fournisseur":"OVH"}`}, &memSaver{}).
		Process(context.Background(), Document{Path: "/tmp/ovh.pdf"})
	assert.True(t, ok.OK())
	assert.Equal(t, "id-ovh.pdf", ok.RecordID)
	require.NotNil(t, ok.Record)
	assert.Equal(t, ok.RecordID, ok.Record.ID)

	failed := newProc(&stubText{err: textextract.ErrNoText}, &stubModel{}, &memSaver{}).
		Process(context.Background(), Document{Path: "/tmp/empty.pdf"})
	assert.False(t, failed.OK())
	assert.Equal(t, constants.StatusError, failed.Status)
	assert.Equal(t, constants.StageTextExtraction, failed.Stage)
	assert.Equal(t, textextract.ErrNoText.Error(), failed.Message)
	assert.Nil(t, failed.Record)
	assert.Empty(t, failed.RecordID)

	b, err := json.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","stage":"text_extraction","message":"`+textextract.ErrNoText.Error()+`","document":"empty.pdf"}`, string(b))
}
