package engine

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"casework/internal/domain"
	"casework/internal/events"
	"casework/internal/repo"
)

type VisitQuery struct {
	Search string
	Status string
	Type   string
}

func (e Engine) ListVisits(ctx context.Context, q VisitQuery) ([]domain.Visit, error) {
	visits, err := e.Repo.ListVisits(ctx, repo.VisitFilters{})
	if err != nil {
		return nil, err
	}
	return FilterVisits(visits, q.Search, q.Status, q.Type), nil
}

// UpcomingVisits returns up to ten scheduled visits from now on.
func (e Engine) UpcomingVisits(ctx context.Context) ([]domain.Visit, error) {
	return e.Repo.ListVisits(ctx, repo.VisitFilters{
		Status: domain.VisitScheduled,
		From:   e.stamp(),
		Limit:  10,
	})
}

// VisitsBetween returns visits scheduled on any day from start to end inclusive.
func (e Engine) VisitsBetween(ctx context.Context, start, end time.Time) ([]domain.Visit, error) {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return e.Repo.ListVisits(ctx, repo.VisitFilters{
		From: from.Format(time.RFC3339),
		To:   to.Format(time.RFC3339),
	})
}

type VisitCreateOptions struct {
	FamilyID    string
	Title       string
	Description string
	VisitType   string
	ScheduledAt time.Time
	AssignedTo  string
}

func (e Engine) CreateVisit(ctx context.Context, opts VisitCreateOptions, actorID string) (domain.Visit, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Visit{}, errTitleRequired
	}
	if opts.VisitType == "" {
		opts.VisitType = "HOME_VISIT"
	}
	if err := checkEnum("visit_type", opts.VisitType, domain.VisitTypes); err != nil {
		return domain.Visit{}, err
	}
	if opts.ScheduledAt.IsZero() {
		return domain.Visit{}, InvalidValueError{Field: "scheduled_at", Value: ""}
	}
	if _, err := e.Repo.GetFamily(ctx, opts.FamilyID); err != nil {
		return domain.Visit{}, err
	}
	v := domain.Visit{
		ID:          newID(),
		FamilyID:    opts.FamilyID,
		Title:       strings.TrimSpace(opts.Title),
		Description: strings.TrimSpace(opts.Description),
		VisitType:   opts.VisitType,
		Status:      domain.VisitScheduled,
		ScheduledAt: opts.ScheduledAt.UTC().Format(time.RFC3339),
		AssignedTo:  optionalString(opts.AssignedTo),
		CreatedAt:   e.stamp(),
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertVisit(ctx, tx, v); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.VisitCreated, "visit", v.ID, actorID, events.EventPayload{
			"family_id":    v.FamilyID,
			"scheduled_at": v.ScheduledAt,
		})
	})
	if err != nil {
		return domain.Visit{}, err
	}
	return e.Repo.GetVisit(ctx, v.ID)
}

// UpdateVisitStatus moves a visit to status. COMPLETED stamps completed_at;
// notes replace the stored notes only when non-nil.
func (e Engine) UpdateVisitStatus(ctx context.Context, id, status string, notes *string, actorID string) (domain.Visit, error) {
	if err := checkEnum("status", status, domain.VisitStatuses); err != nil {
		return domain.Visit{}, err
	}
	var completedAt *string
	if status == domain.VisitCompleted {
		ts := e.stamp()
		completedAt = &ts
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateVisitStatus(ctx, tx, id, status, completedAt, notes); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.VisitStatusChanged, "visit", id, actorID, events.EventPayload{"status": status})
	})
	if err != nil {
		return domain.Visit{}, err
	}
	return e.Repo.GetVisit(ctx, id)
}
