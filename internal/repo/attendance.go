package repo

import (
	"context"
	"database/sql"

	"casework/internal/domain"
)

func (r Repo) InsertAttendance(ctx context.Context, tx *sql.Tx, a domain.AttendanceEntry) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO attendance_history(id,family_id,attended_by,description,urgency,notes,created_at) VALUES (?,?,?,?,?,?,?)`),
		a.ID, a.FamilyID, a.AttendedBy, a.Description, a.Urgency, nullable(a.Notes), a.CreatedAt)
	return err
}

// ListAttendance returns a family's attendance history, newest first.
func (r Repo) ListAttendance(ctx context.Context, familyID string) ([]domain.AttendanceEntry, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`SELECT a.id,a.family_id,a.attended_by,COALESCE(u.name,''),a.description,a.urgency,COALESCE(a.notes,''),a.created_at
FROM attendance_history a LEFT JOIN users u ON u.id=a.attended_by WHERE a.family_id=? ORDER BY a.created_at DESC, a.id DESC`), familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AttendanceEntry
	for rows.Next() {
		var a domain.AttendanceEntry
		if err := rows.Scan(&a.ID, &a.FamilyID, &a.AttendedBy, &a.AttendedByName, &a.Description, &a.Urgency, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
