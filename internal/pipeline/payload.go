package pipeline

import (
	"errors"

	"github.com/kluster66/invoice-extractor/constants"
	"github.com/kluster66/invoice-extractor/internal/entity"
)

// Payload is what a trigger gets back for one document. A success always carries the
// full record; a failure carries only the stage and message.
type Payload struct {
	Status   string                `json:"status"`
	RecordID string                `json:"recordId,omitempty"`
	Record   *entity.InvoiceRecord `json:"record,omitempty"`
	Stage    constants.Stage       `json:"stage,omitempty"`
	Kind     string                `json:"kind,omitempty"`
	Message  string                `json:"message,omitempty"`
	Document string                `json:"document,omitempty"`
}

func SuccessPayload(rec entity.InvoiceRecord) Payload {
	return Payload{Status: constants.StatusSuccess, RecordID: rec.ID, Record: &rec, Document: rec.SourceFilename}
}

// FailurePayload renders err. Errors without a stage are reported against the fetch stage.
func FailurePayload(document string, err error) Payload {
	p := Payload{Status: constants.StatusError, Stage: constants.StageFetch, Message: err.Error(), Document: document}
	var se *StageError
	if errors.As(err, &se) {
		p.Stage = se.Stage
		p.Kind = string(se.Kind)
		p.Message = se.Cause.Error()
	}
	return p
}

// OK reports whether the payload is a success.
func (p Payload) OK() bool { return p.Status == constants.StatusSuccess }
