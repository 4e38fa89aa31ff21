package handler

import (
	"context"

	"github.com/astralibs/lending-service/lending/internal/model"
	"github.com/astralibs/lending-service/lending/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

type LoanService interface {
	Checkout(ctx context.Context, req model.CheckoutRequest) (model.Loan, error)
	Return(ctx context.Context, loanID int) (model.Loan, error)
	IsAvailable(ctx context.Context, bookID int) (bool, error)
	DeleteLoan(ctx context.Context, loanID int) error
	GetLoan(ctx context.Context, loanID int) (model.LoanDetail, error)
	ListMine(ctx context.Context, username string) ([]model.LoanDetail, error)
	ListAll(ctx context.Context) ([]model.LoanDetail, error)
}

var _ LoanService = (*service.Service)(nil)
