package repo

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that an idempotency record already exists for the
// given (scope, key) pair.
var ErrDuplicate = errors.New("duplicate")

// Constraint codes reported to clients. The values follow the Prisma
// request-error catalogue so existing API consumers keep matching on them.
const (
	CodeUniqueViolation     = "P2002"
	CodeForeignKeyViolation = "P2003"
	CodeCheckViolation      = "P2004"
	CodeNotNullViolation    = "P2011"
)

// ConstraintError reports a request the store rejected because it violated
// a schema constraint (unique, foreign key, not-null, check).
type ConstraintError struct {
	Code string
	Err  error
}

func (e *ConstraintError) Error() string {
	if e.Err == nil {
		return "constraint violation " + e.Code
	}
	return "constraint violation " + e.Code + ": " + e.Err.Error()
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// classify wraps store-side constraint violations into *ConstraintError and
// returns every other error unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := constraintCode(err); ok {
		return &ConstraintError{Code: code, Err: err}
	}
	return err
}

func constraintCode(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return CodeUniqueViolation, true
		case "23503":
			return CodeForeignKeyViolation, true
		case "23502":
			return CodeNotNullViolation, true
		case "23514":
			return CodeCheckViolation, true
		}
		return "", false
	}

	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return CodeUniqueViolation, true
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return CodeForeignKeyViolation, true
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return CodeCheckViolation, true
	}

	// glebarez/sqlite often returns plain-text errors for constraint failures.
	low := strings.ToLower(err.Error())
	switch {
	case strings.Contains(low, "unique constraint failed"),
		strings.Contains(low, "constraint failed: unique"):
		return CodeUniqueViolation, true
	case strings.Contains(low, "foreign key constraint failed"):
		return CodeForeignKeyViolation, true
	case strings.Contains(low, "not null constraint failed"):
		return CodeNotNullViolation, true
	case strings.Contains(low, "check constraint failed"):
		return CodeCheckViolation, true
	}
	return "", false
}
