// Package sqlxrepos implements the domain repositories on PostgreSQL.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/grupka/grupka/core"
)

// postgres error codes
const (
	uniqueViolation           = "23505"
	foreignKeyViolation       = "23503"
	invalidTextRepresentation = "22P02"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isNotFound reports missing rows. Malformed uuids can never match a row either.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || pqCode(err) == invalidTextRepresentation
}

func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// withTx runs fn in a transaction, rolling back when it fails.
func withTx(ctx context.Context, db core.DB, fn func(tx core.DBTransactor) error) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
