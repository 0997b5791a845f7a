package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"casework/internal/domain"
	"casework/internal/events"
)

// PublicActor is recorded on events written by self-service registration.
const PublicActor = "public"

// InsertFamily validates and stores a new registration under code with the
// configured default status and urgency.
func (e Engine) InsertFamily(ctx context.Context, code string, reg domain.Registration) (domain.FamilyRef, error) {
	required := []struct {
		field string
		value string
	}{
		{"responsible_name", reg.ResponsibleName},
		{"street", reg.Street},
		{"neighborhood", reg.Neighborhood},
		{"city", reg.City},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.FamilyRef{}, FieldError{Field: r.field}
		}
	}
	if strings.TrimSpace(code) == "" {
		return domain.FamilyRef{}, fmt.Errorf("family code required")
	}
	cfg := e.config()
	now := e.stamp()
	f := domain.Family{
		ID:           newID(),
		PublicCode:   code,
		Status:       cfg.Registration.DefaultStatus,
		UrgencyLevel: cfg.Registration.DefaultUrgency,
		Registration: reg,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertFamily(ctx, tx, f); err != nil {
			return fmt.Errorf("insert family: %w", err)
		}
		return e.Events.Append(ctx, tx, events.FamilyRegistered, "family", f.ID, PublicActor, events.EventPayload{
			"public_code": f.PublicCode,
			"city":        f.City,
		})
	})
	if err != nil {
		return domain.FamilyRef{}, err
	}
	e.log().Info("family registered", zap.String("id", f.ID), zap.String("code", code))
	return domain.FamilyRef{ID: f.ID, Code: f.PublicCode}, nil
}

// InsertMembers stores members of familyID in one transaction. Blank names
// are skipped and unparsable ages stored as NULL.
func (e Engine) InsertMembers(ctx context.Context, familyID string, members []domain.MemberInput) error {
	if len(members) == 0 {
		return nil
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		pos := 0
		for _, m := range members {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				continue
			}
			row := domain.FamilyMember{
				ID:       newID(),
				FamilyID: familyID,
				Position: pos,
				Name:     name,
				Kinship:  strings.TrimSpace(m.Kinship),
				Age:      domain.ParseInt(m.Age),
			}
			if err := e.Repo.InsertMember(ctx, tx, row); err != nil {
				return fmt.Errorf("insert member %d: %w", pos, err)
			}
			pos++
		}
		return nil
	})
	if err != nil {
		payload := events.EventPayload{"members": len(members), "error": err.Error()}
		if evErr := e.Events.Append(ctx, e.DB, events.MemberInsertFailed, "family", familyID, PublicActor, payload); evErr != nil {
			e.log().Warn("member failure not recorded", zap.String("family_id", familyID), zap.Error(evErr))
		}
	}
	return err
}
