package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"casework/internal/domain"
	"casework/internal/events"
	"casework/internal/repo"
)

// ActiveUsers returns active users ordered by name.
func (e Engine) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	return e.Repo.ListUsers(ctx, true)
}

func (e Engine) CreateUser(ctx context.Context, u domain.User, actorID string) (domain.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Name == "" || u.Email == "" {
		return domain.User{}, errors.New("name and email are required")
	}
	if u.Role == "" {
		u.Role = "VOLUNTEER"
	}
	if err := checkEnum("role", u.Role, domain.UserRoles); err != nil {
		return domain.User{}, err
	}
	if u.Status == "" {
		u.Status = "ACTIVE"
	}
	if u.ID == "" {
		u.ID = newID()
	}
	u.CreatedAt = e.stamp()
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.UserCreated, "user", u.ID, actorID, events.EventPayload{"role": u.Role})
	})
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// CreateAPIKey issues a key for userID. The plaintext is returned once; only
// its hash is stored.
func (e Engine) CreateAPIKey(ctx context.Context, userID, name, actorID string) (domain.APIKey, string, error) {
	if _, err := e.Repo.GetUser(ctx, userID); err != nil {
		return domain.APIKey{}, "", err
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	plain := "cw_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        newID(),
		UserID:    userID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.stamp(),
	}
	err := e.withTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.InsertAPIKey(ctx, tx, key); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, events.APIKeyCreated, "user", userID, actorID, events.EventPayload{"api_key_id": key.ID})
	})
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return key, plain, nil
}
