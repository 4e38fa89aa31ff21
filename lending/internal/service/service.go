package service

import (
	"context"

	"github.com/astralibs/lending-service/lending/internal/model"
	"github.com/astralibs/lending-service/lending/internal/repository"
	"github.com/astralibs/lending-service/pkg/kafka"
	"go.uber.org/zap"
)

type Service struct {
	log   *zap.Logger
	repo  repository.Repository
	queue Enqueuer
}

func NewService(repo repository.Repository, queue Enqueuer, log *zap.Logger) *Service {
	return &Service{
		log:   log,
		repo:  repo,
		queue: queue,
	}
}

// Checkout creates a loan for an available book and flips the ledger
// entry in one transaction. The loan-created event is emitted only
// after the transition has committed and never fails the call.
func (s *Service) Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, error) {
	loan, book, err := s.repo.Checkout(ctx, req)
	if err != nil {
		return model.Loan{}, err
	}

	s.emit(kafka.LoanEvent{
		Type:      kafka.EventLoanCreated,
		BookID:    book.ID,
		BookTitle: book.Title,
		Username:  loan.Username,
	})
	return loan, nil
}

// Return stamps the return time and frees the book, then emits the
// loan-returned event carrying the borrower contact captured at
// checkout.
func (s *Service) Return(ctx context.Context, loanID int) (model.Loan, error) {
	loan, book, err := s.repo.Return(ctx, loanID)
	if err != nil {
		return model.Loan{}, err
	}

	s.emit(kafka.LoanEvent{
		Type:      kafka.EventLoanReturned,
		BookID:    book.ID,
		BookTitle: book.Title,
		Username:  loan.Username,
		Email:     loan.Email,
	})
	return loan, nil
}

func (s *Service) IsAvailable(ctx context.Context, bookID int) (bool, error) {
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return false, err
	}
	return book.Available, nil
}

func (s *Service) DeleteLoan(ctx context.Context, loanID int) error {
	return s.repo.DeleteLoan(ctx, loanID)
}

func (s *Service) GetLoan(ctx context.Context, loanID int) (model.LoanDetail, error) {
	return s.repo.GetLoan(ctx, loanID)
}

func (s *Service) ListMine(ctx context.Context, username string) ([]model.LoanDetail, error) {
	return s.repo.ListByUsername(ctx, username)
}

func (s *Service) ListAll(ctx context.Context) ([]model.LoanDetail, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) emit(event kafka.LoanEvent) {
	if s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(kafka.LoanTopic, event); err != nil {
		s.log.Warn("enqueue loan event", zap.String("type", event.Type), zap.Error(err))
	}
}
