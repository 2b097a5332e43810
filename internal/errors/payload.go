package errors

import "errors"

// Error kind names surfaced to callers in the wire payload.
const (
	KindValidation         = "ValidationError"
	KindCycle              = "CycleError"
	KindNotFound           = "NotFoundError"
	KindStateConflict      = "StateConflictError"
	KindExternalGeneration = "ExternalGenerationError"
	KindPersistence        = "PersistenceError"
	KindInternal           = "InternalError"
)

// Payload is the error shape surfaced to outer tooling:
// {error: true, errorType: <kind>, message, ...kind-specific fields}.
// Field names are part of the wire contract and must not change.
type Payload struct {
	// Error is always true; it lets callers distinguish error payloads
	// from results without inspecting shapes.
	Error bool `json:"error"`

	// ErrorType is one of the Kind* constants.
	ErrorType string `json:"errorType"`

	// Message is the human-readable error description.
	Message string `json:"message"`

	// CyclePath carries the full cycle for CycleError payloads.
	CyclePath []string `json:"cyclePath,omitempty"`
}

// ToPayload maps an error chain onto the wire payload shape.
// Unrecognized errors map to InternalError.
func ToPayload(err error) *Payload {
	p := &Payload{
		Error:     true,
		ErrorType: KindInternal,
		Message:   err.Error(),
	}

	switch {
	case errors.Is(err, ErrCycle):
		p.ErrorType = KindCycle
		if ce := AsCycleError(err); ce != nil {
			p.CyclePath = append([]string(nil), ce.Path...)
		}
	case errors.Is(err, ErrNotFound):
		p.ErrorType = KindNotFound
	case errors.Is(err, ErrStateConflict), errors.Is(err, ErrInvalidTransition):
		p.ErrorType = KindStateConflict
	case errors.Is(err, ErrValidation), errors.Is(err, ErrSelfDependency),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyValue),
		errors.Is(err, ErrUnknownOperation):
		p.ErrorType = KindValidation
	case errors.Is(err, ErrExternalGeneration), errors.Is(err, ErrUnparsableResponse):
		p.ErrorType = KindExternalGeneration
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrLockTimeout):
		p.ErrorType = KindPersistence
	}

	return p
}
