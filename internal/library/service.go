// internal/library/service.go
package library

import (
	"context"
	"time"
)

// Clock supplies the current time for date arithmetic.
type Clock func() time.Time

// BookStats summarizes a user's collection.
type BookStats struct {
	Total      int
	Available  int
	Loaned     int
	ByCategory map[string]int
	ByAuthor   map[string]int
	MostLoaned *Book
}

// LoanStats summarizes a user's lending behavior.
type LoanStats struct {
	Total                int
	Active               int
	Completed            int
	OnTimeReturns        int
	LateReturns          int
	Overdue              int
	MostFrequentBorrower string
}

// BookService defines the business operations over the book collection.
// Every listing operation re-derives each book's status from the current
// active-loan set before returning, so a stale persisted status can never
// leak out.
type BookService interface {
	AddBook(ctx context.Context, userID, title, author, category string) (*Book, error)
	DeleteBook(ctx context.Context, userID, bookID, title string) (*Book, error)
	AllBooks(ctx context.Context, userID string) ([]Book, error)
	SearchByTitle(ctx context.Context, userID, term string) ([]Book, error)
	SearchByAuthor(ctx context.Context, userID, term string) ([]Book, error)
	AvailableBooks(ctx context.Context, userID string) ([]Book, error)
	LoanedBooks(ctx context.Context, userID string) ([]Book, error)
	Statistics(ctx context.Context, userID string) (*BookStats, error)
}

// LoanService defines the business operations over loans.
type LoanService interface {
	// CreateLoan resolves the book by id or title, rejects books that are
	// already out or users at their loan limit, and returns the new loan.
	CreateLoan(ctx context.Context, userID, bookID, bookTitle, borrower string, loanDays int) (*Loan, error)
	// ReturnLoan resolves the active loan by id or title and returns the
	// completed loan together with an on-time flag.
	ReturnLoan(ctx context.Context, userID, loanID, bookTitle string) (*Loan, bool, error)
	ActiveLoans(ctx context.Context, userID string) ([]Loan, error)
	LoanHistory(ctx context.Context, userID string) ([]Loan, error)
	OverdueLoans(ctx context.Context, userID string) ([]Loan, error)
	LoansDueSoon(ctx context.Context, userID string, daysThreshold int) ([]Loan, error)
	ExtendLoan(ctx context.Context, userID, loanID string, additionalDays int) (*Loan, error)
	Statistics(ctx context.Context, userID string) (*LoanStats, error)
}
