package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spotstat/internal/models"
	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/urfave/cli/v3"
)

// eventView is the JSON form of a token event.
type eventView struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	Kind       string    `json:"kind"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	Rotated    bool      `json:"refreshRotated"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newEventView(e *models.TokenEvent) eventView {
	return eventView{
		ID:         e.ID(),
		Sequence:   e.Sequence(),
		Kind:       string(e.Kind()),
		Outcome:    string(e.Outcome()),
		StatusCode: e.StatusCode(),
		Message:    e.Message(),
		Rotated:    e.RefreshRotated(),
		CreatedAt:  e.CreatedAt(),
	}
}

// Events lists recent token events, optionally pruning old ones first.
func (r *Runner) Events(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.eventRepository()
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("%w: database.path is empty, token events are disabled", shared.ErrMissingConfig)
	}

	if age := cmd.Duration("prune"); age > 0 {
		removed, err := repo.Prune(time.Now().Add(-age))
		if err != nil {
			return err
		}
		r.logger.Info("pruned token events", "removed", removed, "older_than", age)
	}

	events, err := repo.Recent(cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]eventView, 0, len(events))
		for _, e := range events {
			views = append(views, newEventView(e))
		}
		return r.writeJSON(views, true)
	}

	r.writePlainHeader("Token events")
	if last, err := repo.LastSuccess(models.EventRefresh); err == nil && last != nil {
		r.writePlain("%s %s\n\n", r.palette.Help("last successful refresh:"), last.CreatedAt().Local().Format(time.DateTime))
	}
	if len(events) == 0 {
		return r.writePlain("%s\n", r.palette.Help("no events recorded"))
	}

	for _, e := range events {
		r.writePlain("%4d  %s  %-9s  %s", e.Sequence(), e.CreatedAt().Local().Format(time.DateTime), e.Kind(), r.palette.Outcome(string(e.Outcome())))
		if e.StatusCode() != 0 {
			r.writePlain("  %d", e.StatusCode())
		}
		if e.RefreshRotated() {
			r.writePlain("  %s", r.palette.Warn("rotated"))
		}
		if e.Message() != "" {
			r.writePlain("  %s", r.palette.Help(e.Message()))
		}
		r.writePlain("\n")
	}
	return nil
}
