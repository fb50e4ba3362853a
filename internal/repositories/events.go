package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/spotstat/internal/models"
	"github.com/desertthunder/spotstat/internal/shared"
)

// TokenEventRepository persists [models.TokenEvent] rows.
type TokenEventRepository struct {
	db *sql.DB
}

// NewTokenEventRepository creates a new [TokenEventRepository] with the given database connection
func NewTokenEventRepository(db *sql.DB) *TokenEventRepository {
	return &TokenEventRepository{db: db}
}

// Create inserts a new event with generated ID and sequence.
func (r *TokenEventRepository) Create(event *models.TokenEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "token_events")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO token_events (id, sequence, kind, outcome, status_code, message, rotated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, id, sequence, string(event.Kind()), string(event.Outcome()),
		event.StatusCode(), event.Message(), event.RefreshRotated(), event.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert token event: %w", err)
	}

	event.SetID(id)
	event.SetSequence(sequence)
	return nil
}

// Record implements services.EventRecorder.
func (r *TokenEventRepository) Record(event *models.TokenEvent) error {
	return r.Create(event)
}

// Get retrieves an event by ID.
func (r *TokenEventRepository) Get(id string) (*models.TokenEvent, error) {
	query := `
		SELECT id, sequence, kind, outcome, status_code, message, rotated, created_at
		FROM token_events
		WHERE id = ?
	`

	event, err := scanEvent(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("token event not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token event: %w", err)
	}

	return event, nil
}

// Recent returns up to limit events, newest first. A non-positive limit returns all events.
func (r *TokenEventRepository) Recent(limit int) ([]*models.TokenEvent, error) {
	query := `
		SELECT id, sequence, kind, outcome, status_code, message, rotated, created_at
		FROM token_events
		ORDER BY sequence DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query token events: %w", err)
	}
	defer rows.Close()

	var events []*models.TokenEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating token events: %w", err)
	}

	return events, nil
}

// LastSuccess returns the most recent successful event of the given kind, or nil when none exists.
func (r *TokenEventRepository) LastSuccess(kind models.EventKind) (*models.TokenEvent, error) {
	query := `
		SELECT id, sequence, kind, outcome, status_code, message, rotated, created_at
		FROM token_events
		WHERE kind = ? AND outcome = ?
		ORDER BY sequence DESC
		LIMIT 1
	`

	event, err := scanEvent(r.db.QueryRow(query, string(kind), string(models.OutcomeSuccess)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token event: %w", err)
	}

	return event, nil
}

// Prune deletes events created before cutoff and returns how many were removed.
func (r *TokenEventRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM token_events WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune token events: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.TokenEvent, error) {
	var (
		id         string
		sequence   int
		kind       string
		outcome    string
		statusCode int
		message    string
		rotated    bool
		createdAt  time.Time
	)

	if err := row.Scan(&id, &sequence, &kind, &outcome, &statusCode, &message, &rotated, &createdAt); err != nil {
		return nil, err
	}

	event := models.NewTokenEvent(models.EventKind(kind), models.EventOutcome(outcome)).
		WithStatus(statusCode, message).
		WithRotation(rotated)
	event.SetID(id)
	event.SetSequence(sequence)
	event.SetCreatedAt(createdAt)
	return event, nil
}
