package repo

import (
	"context"
	"database/sql"
	"strings"

	"casework/internal/domain"
)

const visitSelect = `SELECT v.id,v.family_id,v.title,COALESCE(v.description,''),v.visit_type,v.status,v.scheduled_at,v.completed_at,COALESCE(v.notes,''),v.assigned_to,v.created_at,
COALESCE(u.name,''),f.public_code,f.responsible_name,f.neighborhood,f.city,COALESCE(f.phone,'')
FROM visits v JOIN families f ON f.id=v.family_id LEFT JOIN users u ON u.id=v.assigned_to `

func scanVisit(sc interface{ Scan(...any) error }) (domain.Visit, error) {
	var v domain.Visit
	fam := &domain.FamilySummary{}
	err := sc.Scan(&v.ID, &v.FamilyID, &v.Title, &v.Description, &v.VisitType, &v.Status, &v.ScheduledAt, &v.CompletedAt, &v.Notes, &v.AssignedTo, &v.CreatedAt,
		&v.AssignedUserName, &fam.PublicCode, &fam.ResponsibleName, &fam.Neighborhood, &fam.City, &fam.Phone)
	if err != nil {
		return domain.Visit{}, err
	}
	fam.ID = v.FamilyID
	v.Family = fam
	return v, nil
}

func (r Repo) InsertVisit(ctx context.Context, tx *sql.Tx, v domain.Visit) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO visits(id,family_id,title,description,visit_type,status,scheduled_at,completed_at,notes,assigned_to,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`),
		v.ID, v.FamilyID, v.Title, nullable(v.Description), v.VisitType, v.Status, v.ScheduledAt, nullableStringPtr(v.CompletedAt), nullable(v.Notes), nullableStringPtr(v.AssignedTo), v.CreatedAt)
	return err
}

func (r Repo) GetVisit(ctx context.Context, id string) (domain.Visit, error) {
	v, err := scanVisit(r.DB.QueryRowContext(ctx, r.q(visitSelect+`WHERE v.id=?`), id))
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

type VisitFilters struct {
	FamilyID string
	Status   string
	// From and To bound scheduled_at as [From, To).
	From  string
	To    string
	Limit int
}

// ListVisits returns visits by scheduled time, earliest first.
func (r Repo) ListVisits(ctx context.Context, f VisitFilters) ([]domain.Visit, error) {
	var clauses []string
	var args []any
	if f.FamilyID != "" {
		clauses = append(clauses, "v.family_id=?")
		args = append(args, f.FamilyID)
	}
	if f.Status != "" {
		clauses = append(clauses, "v.status=?")
		args = append(args, f.Status)
	}
	if f.From != "" {
		clauses = append(clauses, "v.scheduled_at>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		clauses = append(clauses, "v.scheduled_at<?")
		args = append(args, f.To)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := visitSelect + where + ` ORDER BY v.scheduled_at ASC, v.id ASC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

// UpdateVisitStatus sets status and completion time. Notes are only
// overwritten when provided.
func (r Repo) UpdateVisitStatus(ctx context.Context, tx *sql.Tx, id, status string, completedAt, notes *string) error {
	fields := []string{"status=?", "completed_at=?"}
	args := []any{status, nullableStringPtr(completedAt)}
	if notes != nil {
		fields = append(fields, "notes=?")
		args = append(args, nullable(*notes))
	}
	args = append(args, id)
	res, err := r.on(tx).ExecContext(ctx, r.q(`UPDATE visits SET `+strings.Join(fields, ",")+` WHERE id=?`), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountVisits(ctx context.Context, status, completedSince string) (int, error) {
	var clauses []string
	var args []any
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	if completedSince != "" {
		clauses = append(clauses, "completed_at>=?")
		args = append(args, completedSince)
	}
	return r.count(ctx, "visits", clauses, args)
}
