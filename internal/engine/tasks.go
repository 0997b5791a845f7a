package engine

import (
	"context"
	"database/sql"
	"strings"

	"casework/internal/domain"
	"casework/internal/events"
	"casework/internal/repo"
)

type TaskQuery struct {
	Search   string
	Status   string
	Priority string
}

func (e Engine) ListTasks(ctx context.Context, q TaskQuery) ([]domain.Task, error) {
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return nil, err
	}
	return FilterTasks(tasks, q.Search, q.Status, q.Priority), nil
}

// PendingTasks returns up to ten open tasks, most urgent first.
func (e Engine) PendingTasks(ctx context.Context) ([]domain.Task, error) {
	return e.Repo.ListTasks(ctx, repo.TaskFilters{
		Statuses:  []string{domain.TaskPending, domain.TaskInProgress},
		ByUrgency: true,
		Limit:     10,
	})
}

type TaskCreateOptions struct {
	FamilyID    string
	Title       string
	Description string
	Priority    string
	DueDate     string
	AssignedTo  string
}

func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions, actorID string) (domain.Task, error) {
	if strings.TrimSpace(opts.Title) == "" {
		return domain.Task{}, errTitleRequired
	}
	if opts.Priority == "" {
		opts.Priority = "MEDIUM"
	}
	if err := checkEnum("priority", opts.Priority, domain.TaskPriorities); err != nil {
		return domain.Task{}, err
	}
	if opts.FamilyID != "" {
		if _, err := e.Repo.GetFamily(ctx, opts.FamilyID); err != nil {
			return domain.Task{}, err
		}
	}
	t := domain.Task{
		ID:          newID(),
		FamilyID:    optionalString(opts.FamilyID),
		Title:       strings.TrimSpace(opts.Title),
		Description: strings.TrimSpace(opts.Description),
		Priority:    opts.Priority,
		Status:      domain.TaskPending,
		DueDate:     optionalString(opts.DueDate),
		AssignedTo:  optionalString(opts.AssignedTo),
		CreatedAt:   e.stamp(),
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.TaskCreated, "task", t.ID, actorID, events.EventPayload{"priority": t.Priority})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, t.ID)
}

// UpdateTaskStatus moves a task to status; COMPLETED stamps completed_at.
func (e Engine) UpdateTaskStatus(ctx context.Context, id, status, actorID string) (domain.Task, error) {
	if err := checkEnum("status", status, domain.TaskStatuses); err != nil {
		return domain.Task{}, err
	}
	var completedAt *string
	if status == domain.TaskCompleted {
		ts := e.stamp()
		completedAt = &ts
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.UpdateTaskStatus(ctx, tx, id, status, completedAt); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.TaskStatusChanged, "task", id, actorID, events.EventPayload{"status": status})
	})
	if err != nil {
		return domain.Task{}, err
	}
	return e.Repo.GetTask(ctx, id)
}
