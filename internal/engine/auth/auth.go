package auth

import (
	"context"
	"errors"
	"fmt"

	"casework/internal/config"
	"casework/internal/repo"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Service resolves permissions from a user's role and the configured RBAC map.
type Service struct {
	Repo   repo.Repo
	Config *config.Config
}

// UserPermissions returns the permissions granted to userID. Unknown or
// inactive users get none.
func (s Service) UserPermissions(ctx context.Context, userID string) (string, []string, error) {
	if userID == "" {
		return "", nil, errors.New("user id required")
	}
	u, err := s.Repo.GetUser(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if u.Status != "ACTIVE" {
		return u.Role, nil, nil
	}
	return u.Role, s.Config.RolePermissions(u.Role), nil
}

func (s Service) UserHasPermission(ctx context.Context, userID, perm string) (bool, error) {
	_, perms, err := s.UserPermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return HasPermission(perms, perm), nil
}

// Require returns ForbiddenError when userID lacks perm.
func (s Service) Require(ctx context.Context, userID, perm string) error {
	ok, err := s.UserHasPermission(ctx, userID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: perm}
	}
	return nil
}

func HasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}
