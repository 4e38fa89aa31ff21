package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/astralibs/lending-service/lending/internal/errs"
	"github.com/astralibs/lending-service/lending/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:generate go run github.com/golang/mock/mockgen -source=repository.go -destination=mocks/mock.go

type Repository interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, model.Book, error)
	Return(ctx context.Context, loanID int) (model.Loan, model.Book, error)
	DeleteLoan(ctx context.Context, loanID int) error
	GetBook(ctx context.Context, bookID int) (model.Book, error)
	GetLoan(ctx context.Context, loanID int) (model.LoanDetail, error)
	ListByUsername(ctx context.Context, username string) ([]model.LoanDetail, error)
	ListAll(ctx context.Context) ([]model.LoanDetail, error)
}

type repository struct {
	db  *sqlx.DB
	log *zap.Logger
}

func NewRepository(db *sqlx.DB, log *zap.Logger) (*repository, error) {
	return &repository{
		db:  db,
		log: log.Named("repo"),
	}, nil
}

const (
	booksTableName = `books`
	loanTableName  = `loan`
)

// loanPeriod is how long a borrower keeps a book before it is due.
const loanPeriod = 5 * 24 * time.Hour

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func (r *repository) Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	book, err := lockBook(ctx, tx, req.BookID)
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}
	if !book.Available {
		return model.Loan{}, model.Book{}, errs.ErrBookNotAvailable
	}

	now := time.Now().UTC()
	query, args, err := qb.Insert(loanTableName).
		Columns("loan_uid", "book_id", "username", "email", "checkout_date", "due_date").
		Values(uuid.New(), req.BookID, req.Username, req.Email, now, now.Add(loanPeriod)).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}

	var loan model.Loan
	if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
		r.log.Error("Checkout", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, model.Book{}, translate(err)
	}

	if err := setAvailability(ctx, tx, req.BookID, false); err != nil {
		return model.Loan{}, model.Book{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Loan{}, model.Book{}, translate(err)
	}
	book.Available = false
	return loan, book, nil
}

func (r *repository) Return(ctx context.Context, loanID int) (model.Loan, model.Book, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}
	defer tx.Rollback() //nolint:errcheck

	var loan model.Loan
	q := fmt.Sprintf(`select * from %s where id = $1 for update`, loanTableName)
	if err := tx.GetContext(ctx, &loan, q, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Loan{}, model.Book{}, errs.ErrNotFound
		}
		return model.Loan{}, model.Book{}, err
	}
	if loan.IsReturned() {
		return model.Loan{}, model.Book{}, errs.ErrAlreadyReturned
	}

	book, err := lockBook(ctx, tx, loan.BookID)
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}

	now := time.Now().UTC()
	query, args, err := qb.Update(loanTableName).
		Set("return_date", now).
		Where(sq.Eq{"id": loanID}).
		Suffix("returning *").
		ToSql()
	if err != nil {
		return model.Loan{}, model.Book{}, err
	}
	if err := tx.GetContext(ctx, &loan, query, args...); err != nil {
		r.log.Error("Return", zap.String("q", query), zap.Any("args", args))
		return model.Loan{}, model.Book{}, err
	}

	if err := setAvailability(ctx, tx, loan.BookID, true); err != nil {
		return model.Loan{}, model.Book{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Loan{}, model.Book{}, err
	}
	book.Available = true
	return loan, book, nil
}

func (r *repository) DeleteLoan(ctx context.Context, loanID int) error {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var returnDate sql.NullTime
	q := fmt.Sprintf(`select return_date from %s where id = $1 for update`, loanTableName)
	if err := tx.QueryRowContext(ctx, q, loanID).Scan(&returnDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	if !returnDate.Valid {
		return errs.ErrLoanActive
	}

	query, args, err := qb.Delete(loanTableName).Where(sq.Eq{"id": loanID}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *repository) GetBook(ctx context.Context, bookID int) (model.Book, error) {
	query, args, err := qb.Select("id", "title", "author", "category", "isbn", "available").
		From(booksTableName).
		Where(sq.Eq{"id": bookID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.Book{}, err
	}

	var book model.Book
	if err := r.db.GetContext(ctx, &book, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

func (r *repository) GetLoan(ctx context.Context, loanID int) (model.LoanDetail, error) {
	query, args, err := detailQuery().
		Where(sq.Eq{"l.id": loanID}).
		Limit(1).
		ToSql()
	if err != nil {
		return model.LoanDetail{}, err
	}

	var detail model.LoanDetail
	if err := r.db.GetContext(ctx, &detail, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.LoanDetail{}, errs.ErrNotFound
		}
		return model.LoanDetail{}, err
	}
	return detail, nil
}

func (r *repository) ListByUsername(ctx context.Context, username string) ([]model.LoanDetail, error) {
	query, args, err := detailQuery().
		Where(sq.Eq{"l.username": username}).
		OrderBy("l.checkout_date desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	items := make([]model.LoanDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListAll(ctx context.Context) ([]model.LoanDetail, error) {
	query, args, err := detailQuery().
		OrderBy("l.checkout_date desc").
		ToSql()
	if err != nil {
		return nil, err
	}

	items := make([]model.LoanDetail, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}
	return items, nil
}

func detailQuery() sq.SelectBuilder {
	return qb.Select(
		"l.id",
		"b.title as book_title",
		"l.checkout_date",
		"l.due_date",
		"l.return_date is not null as is_returned",
		"l.username",
		"l.email",
	).
		From(loanTableName + " l").
		Join(fmt.Sprintf("%s b on b.id = l.book_id", booksTableName))
}

// lockBook holds the book row for the duration of the transition so two
// concurrent checkouts cannot both observe available = true.
func lockBook(ctx context.Context, tx *sqlx.Tx, bookID int) (model.Book, error) {
	q := fmt.Sprintf(`select id, title, author, category, isbn, available from %s where id = $1 for update`, booksTableName)
	var book model.Book
	if err := tx.GetContext(ctx, &book, q, bookID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Book{}, errs.ErrNotFound
		}
		return model.Book{}, err
	}
	return book, nil
}

// setAvailability refreshes the availability ledger; it is only invoked
// inside a transition transaction, never from query paths.
func setAvailability(ctx context.Context, tx *sqlx.Tx, bookID int, available bool) error {
	query, args, err := qb.Update(booksTableName).
		Set("available", available).
		Where(sq.Eq{"id": bookID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// translate maps violations of the one-active-loan-per-book index to
// the conflict taxonomy.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return errs.ErrBookNotAvailable
	}
	return err
}
