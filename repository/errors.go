package repository

import (
	"errors"
	"regexp"
	"strings"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

const (
	constraintUsername = "uq_accounts_username"
	constraintEmail    = "uq_accounts_email"
	sqliteUniquePrefix = "UNIQUE constraint failed: "
)

var pgKeyColumn = regexp.MustCompile(`^Key \(([^)]+)\)=`)

// classifyWriteError maps unique constraint violations on accounts to the
// domain conflict errors so a lost registration race fails closed. Only the
// constraint or column name is inspected, never the conflicting value.
func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintUsername:
			return uniqueViolation(err, "username")
		case constraintEmail:
			return uniqueViolation(err, "email")
		}
		if m := pgKeyColumn.FindStringSubmatch(pgErr.Detail); m != nil {
			return uniqueViolation(err, m[1])
		}
		return uniqueViolation(err, "")
	}

	// SQLite reports "UNIQUE constraint failed: accounts.username" with both
	// the cgo and the pure Go driver.
	msg := err.Error()
	if i := strings.Index(msg, sqliteUniquePrefix); i >= 0 {
		target := msg[i+len(sqliteUniquePrefix):]
		if j := strings.IndexAny(target, ", ("); j >= 0 {
			target = target[:j]
		}
		if k := strings.LastIndex(target, "."); k >= 0 {
			target = target[k+1:]
		}
		return uniqueViolation(err, target)
	}

	return err
}

func uniqueViolation(err error, column string) error {
	switch strings.TrimSpace(column) {
	case "username":
		return accounts.ErrUsernameTaken
	case "email":
		return accounts.ErrEmailTaken
	default:
		return goerrors.Wrap(err, goerrors.CategoryConflict, "unique constraint violated").
			WithCode(goerrors.CodeConflict)
	}
}
