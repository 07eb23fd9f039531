package models

// TransactionState is the outcome published by the submission flow.
type TransactionState struct {
	Kind    TransactionStateKind `json:"kind"`
	Message string               `json:"message,omitempty"`
	TxID    int64                `json:"tx_id,omitempty"`
	TxHash  string               `json:"tx_hash,omitempty"`
}

type TransactionStateKind string

const (
	StateIdle    TransactionStateKind = "idle"
	StateLoading TransactionStateKind = "loading"
	StateSuccess TransactionStateKind = "success"
	StateError   TransactionStateKind = "error"
)

func Idle() TransactionState    { return TransactionState{Kind: StateIdle} }
func Loading() TransactionState { return TransactionState{Kind: StateLoading} }

func Success(message string) TransactionState {
	return TransactionState{Kind: StateSuccess, Message: message}
}

func Failure(message string) TransactionState {
	return TransactionState{Kind: StateError, Message: message}
}

// SubmissionStage tracks one send through validation, persistence and the
// chain round trip.
type SubmissionStage int

const (
	StageIdle SubmissionStage = iota
	StageValidating
	StageNeedsConnection
	StageInvalidInput
	StageSubmitting
	StagePersistPending
	StageAwaitingChain
	StageCompleted
	StageFailed
)

func (s SubmissionStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageValidating:
		return "validating"
	case StageNeedsConnection:
		return "blocked:needs_connection"
	case StageInvalidInput:
		return "blocked:invalid_input"
	case StageSubmitting:
		return "submitting"
	case StagePersistPending:
		return "persist_pending"
	case StageAwaitingChain:
		return "awaiting_chain_result"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s SubmissionStage) Terminal() bool {
	switch s {
	case StageNeedsConnection, StageInvalidInput, StageCompleted, StageFailed:
		return true
	}
	return false
}
