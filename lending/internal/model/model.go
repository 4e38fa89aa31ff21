package model

import (
	"time"
)

type Book struct {
	ID        int    `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	Category  string `json:"category" db:"category"`
	ISBN      string `json:"isbn" db:"isbn"`
	Available bool   `json:"available" db:"available"`
}

// Loan is the authoritative lending record. ReturnDate == nil means the
// loan is active and the book is out.
type Loan struct {
	ID           int        `json:"id" db:"id"`
	LoanUid      string     `json:"loanUid" db:"loan_uid"`
	BookID       int        `json:"bookId" db:"book_id"`
	Username     string     `json:"username" db:"username"`
	Email        string     `json:"-" db:"email"`
	CheckoutDate time.Time  `json:"checkoutDate" db:"checkout_date"`
	DueDate      time.Time  `json:"dueDate" db:"due_date"`
	ReturnDate   *time.Time `json:"returnDate" db:"return_date"`
}

func (l Loan) IsReturned() bool {
	return l.ReturnDate != nil
}

// LoanDetail is the denormalized projection served to clients; it is a
// view, never authoritative state.
type LoanDetail struct {
	ID           int       `json:"id" db:"id"`
	BookTitle    string    `json:"bookTitle" db:"book_title"`
	CheckoutDate time.Time `json:"checkoutDate" db:"checkout_date"`
	DueDate      time.Time `json:"dueDate" db:"due_date"`
	IsReturned   bool      `json:"isReturned" db:"is_returned"`
	Username     string    `json:"username,omitempty" db:"username"`
	Email        string    `json:"email,omitempty" db:"email"`
}

type CheckoutRequest struct {
	BookID   int    `validate:"required,gt=0"`
	Username string `validate:"required"`
	Email    string
}

type AvailableResponse struct {
	Available bool `json:"available"`
}
