package constants

// DocumentState is the position of one document in the extraction pipeline.
type DocumentState string

// Stable values (they appear in logs and failure payloads).
const (
	StateFetched       DocumentState = "FETCHED"
	StateTextExtracted DocumentState = "TEXT_EXTRACTED"
	StateModelInvoked  DocumentState = "MODEL_INVOKED"
	StateRecovered     DocumentState = "RECOVERED"
	StateNormalized    DocumentState = "NORMALIZED"
	StateCorrected     DocumentState = "CORRECTED"
	StatePersisted     DocumentState = "PERSISTED"
	StateFailed        DocumentState = "FAILED" // terminal failure
)

// Stage names the pipeline step a failure belongs to.
type Stage string

const (
	StageFetch          Stage = "fetch"
	StageTextExtraction Stage = "text_extraction"
	StageModel          Stage = "model_invocation"
	StageRecovery       Stage = "recovery"
	StagePersistence    Stage = "persistence"
)

// Result statuses of the output payload.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
