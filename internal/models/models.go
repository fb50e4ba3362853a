// package models defines the data model for the spotstat service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// EventKind names the token operation an event describes.
type EventKind string

const (
	EventBootstrap EventKind = "bootstrap"
	EventRefresh   EventKind = "refresh"
	EventExchange  EventKind = "exchange"
)

// EventOutcome is the result of a token operation.
type EventOutcome string

const (
	OutcomeSuccess EventOutcome = "success"
	OutcomeFailure EventOutcome = "failure"
)

// TokenEvent records one attempt to obtain tokens from the provider.
//
// Events are append-only; UpdatedAt always equals CreatedAt.
type TokenEvent struct {
	id         string
	sequence   int
	kind       EventKind
	outcome    EventOutcome
	statusCode int
	message    string
	rotated    bool
	createdAt  time.Time
}

// NewTokenEvent creates an unsaved event stamped with the current time.
func NewTokenEvent(kind EventKind, outcome EventOutcome) *TokenEvent {
	return &TokenEvent{kind: kind, outcome: outcome, createdAt: time.Now().UTC()}
}

func (e *TokenEvent) ID() string { return e.id }
func (e *TokenEvent) Sequence() int { return e.sequence }
func (e *TokenEvent) Kind() EventKind { return e.kind }
func (e *TokenEvent) Outcome() EventOutcome { return e.outcome }
func (e *TokenEvent) StatusCode() int { return e.statusCode }
func (e *TokenEvent) Message() string { return e.message }
func (e *TokenEvent) RefreshRotated() bool { return e.rotated }
func (e *TokenEvent) CreatedAt() time.Time { return e.createdAt }
func (e *TokenEvent) UpdatedAt() time.Time { return e.createdAt }
func (e *TokenEvent) SetID(id string) { e.id = id }
func (e *TokenEvent) SetSequence(seq int) { e.sequence = seq }
func (e *TokenEvent) SetCreatedAt(t time.Time) { e.createdAt = t }

// WithStatus attaches the upstream HTTP status and a diagnostic message.
func (e *TokenEvent) WithStatus(code int, message string) *TokenEvent {
	e.statusCode = code
	e.message = message
	return e
}

// WithRotation marks that the provider issued a new refresh token.
func (e *TokenEvent) WithRotation(rotated bool) *TokenEvent {
	e.rotated = rotated
	return e
}

// Succeeded reports whether the operation succeeded.
func (e *TokenEvent) Succeeded() bool { return e.outcome == OutcomeSuccess }

// Validate checks kind and outcome against the known values.
func (e *TokenEvent) Validate() error {
	switch e.kind {
	case EventBootstrap, EventRefresh, EventExchange:
	default:
		return fmt.Errorf("invalid event kind %q", e.kind)
	}

	switch e.outcome {
	case OutcomeSuccess, OutcomeFailure:
	default:
		return fmt.Errorf("invalid event outcome %q", e.outcome)
	}

	if e.createdAt.IsZero() {
		return fmt.Errorf("event timestamp is required")
	}

	return nil
}
