package repo

import (
	"context"
	"database/sql"

	"casework/internal/domain"
)

func (r Repo) InsertMember(ctx context.Context, tx *sql.Tx, m domain.FamilyMember) error {
	_, err := r.on(tx).ExecContext(ctx, r.q(`INSERT INTO family_members(id,family_id,position,name,kinship,age,occupation) VALUES (?,?,?,?,?,?,?)`),
		m.ID, m.FamilyID, m.Position, m.Name, m.Kinship, nullableIntPtr(m.Age), nullableStringPtr(m.Occupation))
	return err
}

// ListMembers returns a family's members in the order they were entered.
func (r Repo) ListMembers(ctx context.Context, familyID string) ([]domain.FamilyMember, error) {
	rows, err := r.DB.QueryContext(ctx, r.q(`SELECT id,family_id,position,name,kinship,age,occupation FROM family_members WHERE family_id=? ORDER BY position ASC`), familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.FamilyMember
	for rows.Next() {
		var m domain.FamilyMember
		if err := rows.Scan(&m.ID, &m.FamilyID, &m.Position, &m.Name, &m.Kinship, &m.Age, &m.Occupation); err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}
