package repository

import (
	"testing"

	"github.com/astralibs/lending-service/lending/internal/errs"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTranslate(t *testing.T) {
	t.Parallel()

	uniqueViolation := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "uq_loan_active_book",
	}
	require.ErrorIs(t, translate(uniqueViolation), errs.ErrConflict)
	require.ErrorIs(t, translate(errors.Wrap(uniqueViolation, "insert loan")), errs.ErrConflict)

	other := errors.New("connection reset")
	require.Equal(t, other, translate(other))
	require.NotErrorIs(t, translate(other), errs.ErrConflict)
}

func TestDetailQuery(t *testing.T) {
	t.Parallel()

	query, args, err := detailQuery().ToSql()
	require.NoError(t, err)
	require.Empty(t, args)
	require.Equal(t,
		"SELECT l.id, b.title as book_title, l.checkout_date, l.due_date, "+
			"l.return_date is not null as is_returned, l.username, l.email "+
			"FROM loan l JOIN books b on b.id = l.book_id",
		query)
}
