package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/astralibs/lending-service/lending/internal/errs"
	"github.com/astralibs/lending-service/lending/internal/model"
	"github.com/astralibs/lending-service/lending/internal/service"
	"github.com/astralibs/lending-service/pkg/kafka"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	repo_mocks "github.com/astralibs/lending-service/lending/internal/repository/mocks"
)

type fakeQueue struct {
	events []kafka.LoanEvent
	err    error
}

func (q *fakeQueue) Enqueue(topic string, v any) error {
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, v.(kafka.LoanEvent))
	return nil
}

func TestService_Checkout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	checkoutAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	req := model.CheckoutRequest{BookID: 3, Username: "u1", Email: "u1@mail.test"}
	loan := model.Loan{
		ID:           1,
		BookID:       3,
		Username:     "u1",
		Email:        "u1@mail.test",
		CheckoutDate: checkoutAt,
		DueDate:      checkoutAt.Add(5 * 24 * time.Hour),
	}
	book := model.Book{ID: 3, Title: "Clean Architecture", Available: false}

	t.Run("emits loan-created after commit", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Checkout(ctx, req).Return(loan, book, nil)

		queue := &fakeQueue{}
		svc := service.NewService(repo, queue, zap.NewNop())

		got, err := svc.Checkout(ctx, req)
		require.NoError(t, err)
		require.Equal(t, loan, got)
		require.Equal(t, []kafka.LoanEvent{{
			Type:      kafka.EventLoanCreated,
			BookID:    3,
			BookTitle: "Clean Architecture",
			Username:  "u1",
		}}, queue.events)
	})

	t.Run("no event on conflict", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Checkout(ctx, req).Return(model.Loan{}, model.Book{}, errs.ErrBookNotAvailable)

		queue := &fakeQueue{}
		svc := service.NewService(repo, queue, zap.NewNop())

		_, err := svc.Checkout(ctx, req)
		require.ErrorIs(t, err, errs.ErrConflict)
		require.Empty(t, queue.events)
	})

	t.Run("enqueue failure does not fail checkout", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Checkout(ctx, req).Return(loan, book, nil)

		queue := &fakeQueue{err: errors.New("broker down")}
		svc := service.NewService(repo, queue, zap.NewNop())

		got, err := svc.Checkout(ctx, req)
		require.NoError(t, err)
		require.Equal(t, loan, got)
	})
}

func TestService_Return(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	checkoutAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	returnedAt := checkoutAt.Add(48 * time.Hour)

	loan := model.Loan{
		ID:           1,
		BookID:       3,
		Username:     "u1",
		Email:        "u1@mail.test",
		CheckoutDate: checkoutAt,
		DueDate:      checkoutAt.Add(5 * 24 * time.Hour),
		ReturnDate:   &returnedAt,
	}
	book := model.Book{ID: 3, Title: "Clean Architecture", Available: true}

	t.Run("emits loan-returned with borrower contact", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Return(ctx, 1).Return(loan, book, nil)

		queue := &fakeQueue{}
		svc := service.NewService(repo, queue, zap.NewNop())

		got, err := svc.Return(ctx, 1)
		require.NoError(t, err)
		require.True(t, got.IsReturned())
		require.Equal(t, []kafka.LoanEvent{{
			Type:      kafka.EventLoanReturned,
			BookID:    3,
			BookTitle: "Clean Architecture",
			Username:  "u1",
			Email:     "u1@mail.test",
		}}, queue.events)
	})

	t.Run("already returned is a conflict, no event", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Return(ctx, 1).Return(model.Loan{}, model.Book{}, errs.ErrAlreadyReturned)

		queue := &fakeQueue{}
		svc := service.NewService(repo, queue, zap.NewNop())

		_, err := svc.Return(ctx, 1)
		require.ErrorIs(t, err, errs.ErrConflict)
		require.Empty(t, queue.events)
	})

	t.Run("not found passes through", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		repo := repo_mocks.NewMockRepository(c)
		repo.EXPECT().Return(ctx, 99).Return(model.Loan{}, model.Book{}, errs.ErrNotFound)

		queue := &fakeQueue{}
		svc := service.NewService(repo, queue, zap.NewNop())

		_, err := svc.Return(ctx, 99)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestService_IsAvailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockRepository(c)
	repo.EXPECT().GetBook(ctx, 3).Return(model.Book{ID: 3, Available: true}, nil)
	repo.EXPECT().GetBook(ctx, 99).Return(model.Book{}, errs.ErrNotFound)

	svc := service.NewService(repo, &fakeQueue{}, zap.NewNop())

	ok, err := svc.IsAvailable(ctx, 3)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.IsAvailable(ctx, 99)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestService_DeleteLoan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := gomock.NewController(t)
	defer c.Finish()
	repo := repo_mocks.NewMockRepository(c)
	repo.EXPECT().DeleteLoan(ctx, 1).Return(errs.ErrLoanActive)
	repo.EXPECT().DeleteLoan(ctx, 2).Return(nil)

	svc := service.NewService(repo, &fakeQueue{}, zap.NewNop())

	require.ErrorIs(t, svc.DeleteLoan(ctx, 1), errs.ErrConflict)
	require.NoError(t, svc.DeleteLoan(ctx, 2))
}
