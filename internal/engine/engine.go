package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"casework/internal/archive"
	"casework/internal/config"
	"casework/internal/db"
	"casework/internal/engine/auth"
	"casework/internal/events"
	"casework/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Auth    auth.Service
	Config  *config.Config
	Logger  *zap.Logger
	Archive archive.Archiver
	Now     func() time.Time
}

func New(conn *sql.DB, dialect db.Dialect, cfg *config.Config) Engine {
	r := repo.Repo{DB: conn, Dialect: dialect}
	return Engine{
		DB:     conn,
		Repo:   r,
		Events: events.Writer{Dialect: dialect},
		Auth:   auth.Service{Repo: r, Config: cfg},
		Config: cfg,
		Logger: zap.NewNop(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

func (e Engine) config() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default()
}

// Settings returns the active configuration, falling back to the defaults.
func (e Engine) Settings() *config.Config {
	return e.config()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// monthStart is the first instant of the current UTC month.
func (e Engine) monthStart() string {
	n := e.now().UTC()
	return time.Date(n.Year(), n.Month(), 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func newID() string {
	return uuid.NewString()
}

// FieldError reports a required registration field left blank.
type FieldError struct {
	Field string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("campo obrigatório não informado: %s", e.Field)
}

// InvalidValueError reports a value outside its enumeration.
type InvalidValueError struct {
	Field string
	Value string
}

func (e InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

func checkEnum(field, value string, allowed []string) error {
	for _, a := range allowed {
		if a == value {
			return nil
		}
	}
	return InvalidValueError{Field: field, Value: value}
}

// withTx runs fn in a transaction and commits when it returns nil.
func (e Engine) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

var errTitleRequired = errors.New("title is required")
