package repo

import (
	"context"
	"database/sql"
	"strings"

	"casework/internal/domain"
)

const taskSelect = `SELECT t.id,t.family_id,t.title,COALESCE(t.description,''),t.priority,t.status,t.due_date,t.completed_at,t.assigned_to,t.created_at,
COALESCE(u.name,''),f.public_code,f.responsible_name,f.neighborhood,f.city,f.phone
FROM tasks t LEFT JOIN families f ON f.id=t.family_id LEFT JOIN users u ON u.id=t.assigned_to `

const priorityRank = `CASE t.priority WHEN 'URGENT' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END`

func scanTask(sc interface{ Scan(...any) error }) (domain.Task, error) {
	var t domain.Task
	var code, name, neighborhood, city, phone sql.NullString
	err := sc.Scan(&t.ID, &t.FamilyID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate, &t.CompletedAt, &t.AssignedTo, &t.CreatedAt,
		&t.AssignedUserName, &code, &name, &neighborhood, &city, &phone)
	if err != nil {
		return domain.Task{}, err
	}
	if t.FamilyID != nil && code.Valid {
		t.Family = &domain.FamilySummary{
			ID:              *t.FamilyID,
			PublicCode:      code.String,
			ResponsibleName: name.String,
			Neighborhood:    neighborhood.String,
			City:            city.String,
			Phone:           phone.String,
		}
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO tasks(id,family_id,title,description,priority,status,due_date,completed_at,assigned_to,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`),
		t.ID, nullableStringPtr(t.FamilyID), t.Title, nullable(t.Description), t.Priority, t.Status, nullableStringPtr(t.DueDate),
		nullableStringPtr(t.CompletedAt), nullableStringPtr(t.AssignedTo), t.CreatedAt)
	return err
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx, r.q(taskSelect+`WHERE t.id=?`), id))
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

type TaskFilters struct {
	FamilyID string
	Statuses []string
	// ByUrgency orders by priority then due date instead of newest first.
	ByUrgency bool
	Limit     int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.FamilyID != "" {
		clauses = append(clauses, "t.family_id=?")
		args = append(args, f.FamilyID)
	}
	if len(f.Statuses) > 0 {
		clauses = append(clauses, "t.status IN ("+marks(len(f.Statuses))+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	order := ` ORDER BY t.created_at DESC, t.id DESC`
	if f.ByUrgency {
		order = ` ORDER BY ` + priorityRank + ` DESC, CASE WHEN t.due_date IS NULL THEN 1 ELSE 0 END, t.due_date ASC, t.created_at ASC`
	}
	query := taskSelect + where + order
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTaskStatus(ctx context.Context, tx *sql.Tx, id, status string, completedAt *string) error {
	res, err := r.on(tx).ExecContext(ctx, r.q(`UPDATE tasks SET status=?, completed_at=? WHERE id=?`), status, nullableStringPtr(completedAt), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountTasks(ctx context.Context, statuses []string, completedSince string) (int, error) {
	var clauses []string
	var args []any
	if len(statuses) > 0 {
		clauses = append(clauses, "status IN ("+marks(len(statuses))+")")
		for _, s := range statuses {
			args = append(args, s)
		}
	}
	if completedSince != "" {
		clauses = append(clauses, "completed_at>=?")
		args = append(args, completedSince)
	}
	return r.count(ctx, "tasks", clauses, args)
}
