package engine

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"casework/internal/domain"
	"casework/internal/events"
	"casework/internal/repo"
)

// FamilyQuery narrows ListFamilies. Search, Status and Urgency follow the
// dashboard filter semantics ("all" or empty means no filter).
type FamilyQuery struct {
	Search  string
	Status  string
	Urgency string
	Limit   int
}

func (e Engine) ListFamilies(ctx context.Context, q FamilyQuery) ([]domain.Family, error) {
	families, err := e.Repo.ListFamilies(ctx, repo.FamilyFilters{Limit: q.Limit})
	if err != nil {
		return nil, err
	}
	return FilterFamilies(families, q.Search, q.Status, q.Urgency), nil
}

// RecentFamilies returns the five newest registrations.
func (e Engine) RecentFamilies(ctx context.Context) ([]domain.Family, error) {
	return e.Repo.ListFamilies(ctx, repo.FamilyFilters{Limit: 5})
}

// GetFamily loads a family with members, visits, tasks and attendance.
func (e Engine) GetFamily(ctx context.Context, id string) (domain.FamilyDetails, error) {
	f, err := e.Repo.GetFamily(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		f, err = e.Repo.GetFamilyByCode(ctx, id)
	}
	if err != nil {
		return domain.FamilyDetails{}, err
	}
	d := domain.FamilyDetails{Family: f}
	if d.Members, err = e.Repo.ListMembers(ctx, f.ID); err != nil {
		return d, err
	}
	if d.Visits, err = e.Repo.ListVisits(ctx, repo.VisitFilters{FamilyID: f.ID}); err != nil {
		return d, err
	}
	if d.Tasks, err = e.Repo.ListTasks(ctx, repo.TaskFilters{FamilyID: f.ID}); err != nil {
		return d, err
	}
	if d.Attendance, err = e.Repo.ListAttendance(ctx, f.ID); err != nil {
		return d, err
	}
	return d, nil
}

// UpdateFamilyStatus sets the case status and, when urgency is non-nil, the
// urgency level.
func (e Engine) UpdateFamilyStatus(ctx context.Context, id, status string, urgency *string, actorID string) (domain.Family, error) {
	if err := checkEnum("status", status, domain.FamilyStatuses); err != nil {
		return domain.Family{}, err
	}
	if urgency != nil {
		if err := checkEnum("urgency", *urgency, domain.UrgencyLevels); err != nil {
			return domain.Family{}, err
		}
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateFamilyStatus(ctx, tx, id, status, urgency, e.stamp()); err != nil {
			return err
		}
		payload := events.EventPayload{"status": status}
		if urgency != nil {
			payload["urgency"] = *urgency
		}
		return e.Events.Append(ctx, tx, events.FamilyStatusChanged, "family", id, actorID, payload)
	})
	if err != nil {
		return domain.Family{}, err
	}
	return e.Repo.GetFamily(ctx, id)
}

// AssignFamily hands a family to a caseworker. An empty userID unassigns.
func (e Engine) AssignFamily(ctx context.Context, id, userID, actorID string) (domain.Family, error) {
	if userID != "" {
		if _, err := e.Repo.GetUser(ctx, userID); err != nil {
			return domain.Family{}, err
		}
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.AssignFamily(ctx, tx, id, userID, e.stamp()); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.FamilyAssigned, "family", id, actorID, events.EventPayload{"user_id": userID})
	})
	if err != nil {
		return domain.Family{}, err
	}
	return e.Repo.GetFamily(ctx, id)
}

type AttendanceOptions struct {
	FamilyID    string
	UserID      string
	Description string
	Urgency     string
	Notes       string
}

// AddAttendance appends an entry to a family's attendance history.
func (e Engine) AddAttendance(ctx context.Context, opts AttendanceOptions, actorID string) (domain.AttendanceEntry, error) {
	if strings.TrimSpace(opts.Description) == "" {
		return domain.AttendanceEntry{}, errors.New("description is required")
	}
	if opts.Urgency == "" {
		opts.Urgency = domain.UrgencyLow
	}
	if err := checkEnum("urgency", opts.Urgency, domain.UrgencyLevels); err != nil {
		return domain.AttendanceEntry{}, err
	}
	if opts.UserID == "" {
		opts.UserID = actorID
	}
	if _, err := e.Repo.GetFamily(ctx, opts.FamilyID); err != nil {
		return domain.AttendanceEntry{}, err
	}
	a := domain.AttendanceEntry{
		ID:          newID(),
		FamilyID:    opts.FamilyID,
		AttendedBy:  opts.UserID,
		Description: strings.TrimSpace(opts.Description),
		Urgency:     opts.Urgency,
		Notes:       strings.TrimSpace(opts.Notes),
		CreatedAt:   e.stamp(),
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertAttendance(ctx, tx, a); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.AttendanceLogged, "family", a.FamilyID, actorID, events.EventPayload{
			"attendance_id": a.ID,
			"urgency":       a.Urgency,
		})
	})
	if err != nil {
		return domain.AttendanceEntry{}, err
	}
	return a, nil
}
