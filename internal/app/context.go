package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casework/internal/config"
	"casework/internal/domain"
	"casework/internal/repo"
)

// ResolveConfig returns the stored config, seeding it when the database has
// none. The seed is the workspace casework.yml when present, else the defaults.
// An admin user for actorID is ensured so audit rows have someone to point at.
func ResolveConfig(ctx context.Context, workspace, actorID string, r repo.Repo) (*config.Config, error) {
	cfg, err := r.GetConfig(ctx)
	if err == nil {
		return cfg, ensureActor(ctx, r, actorID)
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	seed, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", config.Path(workspace), err)
	}
	if seed == nil {
		seed = config.Default()
	}
	if err := r.UpsertConfig(ctx, seed); err != nil {
		return nil, fmt.Errorf("seed config: %w", err)
	}
	return seed, ensureActor(ctx, r, actorID)
}

func ensureActor(ctx context.Context, r repo.Repo, actorID string) error {
	if actorID == "" {
		return nil
	}
	u := domain.User{
		ID:        actorID,
		Name:      actorID,
		Email:     actorID + "@local",
		Role:      "ADMIN",
		Status:    "ACTIVE",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := r.EnsureUser(ctx, nil, u); err != nil {
		return fmt.Errorf("ensure actor: %w", err)
	}
	return nil
}
