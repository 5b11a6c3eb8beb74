// internal/library/implementation.go
package library

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// bookService implements BookService.
type bookService struct {
	books *BookRepository
	loans *LoanRepository
	clock Clock
}

// NewBookService creates a new book service instance.
func NewBookService(books *BookRepository, loans *LoanRepository, clock Clock) BookService {
	if clock == nil {
		clock = time.Now
	}
	return &bookService{books: books, loans: loans, clock: clock}
}

// AddBook validates and stores a new book with sentinel defaults for the
// optional fields.
func (s *bookService) AddBook(ctx context.Context, userID, title, author, category string) (*Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newError(KindValidation, "El título es requerido")
	}
	if len([]rune(title)) > maxTitleLen {
		return nil, newError(KindValidation, "El título es demasiado largo")
	}

	exists, err := s.books.ExistsTitle(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, newError(KindDuplicate, "Ya existe un libro con el título '%s'", title)
	}

	author = strings.TrimSpace(author)
	if author == "" {
		author = UnknownAuthor
	}
	if len([]rune(author)) > maxAuthorLen {
		return nil, newError(KindValidation, "El nombre del autor es demasiado largo")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = UncategorizedType
	}

	book := Book{
		ID:       NewBookID(),
		Title:    title,
		Author:   author,
		Category: category,
		AddedAt:  s.clock(),
		Status:   BookAvailable,
	}
	if err := s.books.Save(ctx, userID, book); err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes a book unless an active loan still references it. The
// dialog layer decides whether to cascade by returning the loan first and
// retrying.
func (s *bookService) DeleteBook(ctx context.Context, userID, bookID, title string) (*Book, error) {
	book, err := resolveBook(ctx, s.books, userID, bookID, title)
	if err != nil {
		return nil, err
	}

	loan, err := s.loans.FindByBookID(ctx, userID, book.ID)
	if err != nil {
		return nil, err
	}
	if loan != nil && loan.Active() {
		return book, newError(KindConflict,
			"No se puede eliminar '%s' porque está prestado a %s", book.Title, loan.Borrower)
	}

	removed, err := s.books.Delete(ctx, userID, book.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, newError(KindNotFound, "Libro no encontrado")
	}
	return book, nil
}

func (s *bookService) AllBooks(ctx context.Context, userID string) ([]Book, error) {
	books, err := s.books.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.syncStatuses(ctx, userID, books)
}

func (s *bookService) SearchByTitle(ctx context.Context, userID, term string) ([]Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	books, err := s.books.FindByTitle(ctx, userID, term)
	if err != nil {
		return nil, err
	}
	return s.syncStatuses(ctx, userID, books)
}

func (s *bookService) SearchByAuthor(ctx context.Context, userID, term string) ([]Book, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	books, err := s.books.FindByAuthor(ctx, userID, term)
	if err != nil {
		return nil, err
	}
	return s.syncStatuses(ctx, userID, books)
}

func (s *bookService) AvailableBooks(ctx context.Context, userID string) ([]Book, error) {
	books, err := s.AllBooks(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Book
	for _, b := range books {
		if b.Available() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *bookService) LoanedBooks(ctx context.Context, userID string) ([]Book, error) {
	books, err := s.AllBooks(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Book
	for _, b := range books {
		if !b.Available() {
			out = append(out, b)
		}
	}
	return out, nil
}

// Statistics aggregates collection counts by category and author.
func (s *bookService) Statistics(ctx context.Context, userID string) (*BookStats, error) {
	books, err := s.AllBooks(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &BookStats{
		Total:      len(books),
		ByCategory: make(map[string]int),
		ByAuthor:   make(map[string]int),
	}
	var mostLoaned *Book
	for i := range books {
		b := books[i]
		if b.Available() {
			stats.Available++
		} else {
			stats.Loaned++
		}
		stats.ByCategory[b.Category]++
		stats.ByAuthor[b.Author]++
		if b.LoanCount > 0 && (mostLoaned == nil || b.LoanCount > mostLoaned.LoanCount) {
			mostLoaned = &books[i]
		}
	}
	stats.MostLoaned = mostLoaned
	return stats, nil
}

// syncStatuses recomputes each book's status from the current active-loan
// set. Persisted statuses are never trusted: the invariant "OnLoan iff an
// active loan references the book" must hold even after a partial write or a
// stale cache read.
func (s *bookService) syncStatuses(ctx context.Context, userID string, books []Book) ([]Book, error) {
	if len(books) == 0 {
		return books, nil
	}
	active, err := s.loans.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	loaned := make(map[string]bool, len(active))
	for i := range active {
		loaned[active[i].BookID] = true
	}
	for i := range books {
		if loaned[books[i].ID] {
			books[i].Status = BookOnLoan
		} else {
			books[i].Status = BookAvailable
		}
	}
	return books, nil
}

// loanService implements LoanService.
type loanService struct {
	books   *BookRepository
	loans   *LoanRepository
	records *Repository
	clock   Clock
}

// NewLoanService creates a new loan service instance.
func NewLoanService(books *BookRepository, loans *LoanRepository, records *Repository, clock Clock) LoanService {
	if clock == nil {
		clock = time.Now
	}
	return &loanService{books: books, loans: loans, records: records, clock: clock}
}

// CreateLoan registers a loan for an available book, bumping the book's loan
// counter and flipping its status.
func (s *loanService) CreateLoan(ctx context.Context, userID, bookID, bookTitle, borrower string, loanDays int) (*Loan, error) {
	book, err := resolveBook(ctx, s.books, userID, bookID, bookTitle)
	if err != nil {
		return nil, err
	}

	existing, err := s.loans.FindByBookID(ctx, userID, book.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Active() {
		return nil, newError(KindAlreadyLoaned,
			"'%s' ya está prestado a %s", book.Title, existing.Borrower)
	}

	rec, err := s.records.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rec.ActiveLoans) >= rec.Config.MaxActiveLoans {
		return nil, newError(KindLimitExceeded,
			"Has alcanzado el límite máximo de %d préstamos activos", rec.Config.MaxActiveLoans)
	}

	if loanDays <= 0 {
		loanDays = rec.Config.LoanDays
	}
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		borrower = DefaultBorrower
	}

	now := s.clock()
	loan := Loan{
		ID:       NewLoanID(now),
		BookID:   book.ID,
		Title:    book.Title,
		Borrower: borrower,
		LoanedAt: now,
		DueAt:    now.AddDate(0, 0, loanDays),
		Status:   LoanActive,
		LoanDays: loanDays,
	}

	book.LoanCount++
	book.Status = BookOnLoan

	if err := s.loans.Save(ctx, userID, loan); err != nil {
		return nil, err
	}
	if err := s.books.Save(ctx, userID, *book); err != nil {
		return nil, err
	}
	return &loan, nil
}

// ReturnLoan completes an active loan, moves it into history and makes the
// book available again. The second return value reports whether the book
// came back on time.
func (s *loanService) ReturnLoan(ctx context.Context, userID, loanID, bookTitle string) (*Loan, bool, error) {
	loan, err := s.findActiveLoan(ctx, userID, loanID, bookTitle)
	if err != nil {
		return nil, false, err
	}
	if loan == nil {
		ref := bookTitle
		if ref == "" {
			ref = loanID
		}
		return nil, false, newError(KindNotFound, "No encontré un préstamo activo para '%s'", ref)
	}

	now := s.clock()
	loan.ReturnedAt = &now
	loan.Status = LoanReturned
	onTime := loan.ReturnedOnTime()

	if book, err := s.books.FindByID(ctx, userID, loan.BookID); err != nil {
		return nil, false, err
	} else if book != nil {
		book.Status = BookAvailable
		if err := s.books.Save(ctx, userID, *book); err != nil {
			return nil, false, err
		}
	}

	found, err := s.loans.Complete(ctx, userID, *loan)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, fmt.Errorf("active loan %s vanished before completion", loan.ID)
	}
	return loan, onTime, nil
}

// ActiveLoans returns the active loans with the derived Overdue status
// refreshed against the current time.
func (s *loanService) ActiveLoans(ctx context.Context, userID string) ([]Loan, error) {
	loans, err := s.loans.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	for i := range loans {
		if loans[i].OverdueAt(now) {
			loans[i].Status = LoanOverdue
		}
	}
	return loans, nil
}

func (s *loanService) LoanHistory(ctx context.Context, userID string) ([]Loan, error) {
	return s.loans.History(ctx, userID)
}

func (s *loanService) OverdueLoans(ctx context.Context, userID string) ([]Loan, error) {
	loans, err := s.ActiveLoans(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Loan
	for _, l := range loans {
		if l.Status == LoanOverdue {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *loanService) LoansDueSoon(ctx context.Context, userID string, daysThreshold int) ([]Loan, error) {
	loans, err := s.ActiveLoans(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	var out []Loan
	for _, l := range loans {
		if d := l.DaysLeft(now); l.Status == LoanActive && d >= 0 && d <= daysThreshold {
			out = append(out, l)
		}
	}
	return out, nil
}

// ExtendLoan pushes an active loan's due date out by additionalDays.
func (s *loanService) ExtendLoan(ctx context.Context, userID, loanID string, additionalDays int) (*Loan, error) {
	if additionalDays <= 0 {
		return nil, newError(KindValidation, "Los días adicionales deben ser positivos")
	}
	loans, err := s.loans.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].ID == loanID {
			loan := loans[i]
			loan.DueAt = loan.DueAt.AddDate(0, 0, additionalDays)
			loan.LoanDays += additionalDays
			if err := s.loans.Save(ctx, userID, loan); err != nil {
				return nil, err
			}
			return &loan, nil
		}
	}
	return nil, newError(KindNotFound, "Préstamo no encontrado o no está activo")
}

// Statistics aggregates lending counters over the full history.
func (s *loanService) Statistics(ctx context.Context, userID string) (*LoanStats, error) {
	all, err := s.loans.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	stats := &LoanStats{Total: len(all)}
	borrowers := make(map[string]int)
	for i := range all {
		l := all[i]
		borrowers[l.Borrower]++
		switch {
		case l.Active():
			stats.Active++
			if l.OverdueAt(now) {
				stats.Overdue++
			}
		case l.Status == LoanReturned:
			stats.Completed++
			if l.ReturnedOnTime() {
				stats.OnTimeReturns++
			} else {
				stats.LateReturns++
			}
		}
	}
	top := 0
	for name, count := range borrowers {
		if count > top {
			top = count
			stats.MostFrequentBorrower = name
		}
	}
	return stats, nil
}

func (s *loanService) findActiveLoan(ctx context.Context, userID, loanID, bookTitle string) (*Loan, error) {
	if loanID != "" {
		loans, err := s.loans.FindActive(ctx, userID)
		if err != nil {
			return nil, err
		}
		for i := range loans {
			if loans[i].ID == loanID {
				return &loans[i], nil
			}
		}
		return nil, nil
	}
	if bookTitle != "" {
		return s.loans.FindActiveByTitle(ctx, userID, bookTitle)
	}
	return nil, nil
}

// resolveBook finds a single book by id or title. Title resolution prefers a
// unique loose match, then a unique case-insensitive exact match, and
// reports ambiguity with up to three candidate titles otherwise.
func resolveBook(ctx context.Context, books *BookRepository, userID, bookID, title string) (*Book, error) {
	if bookID != "" {
		book, err := books.FindByID(ctx, userID, bookID)
		if err != nil {
			return nil, err
		}
		if book == nil {
			return nil, newError(KindNotFound, "No encontré el libro '%s'", bookID)
		}
		return book, nil
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, newError(KindValidation, "Necesito el título o el identificador del libro")
	}

	matches, err := books.FindByTitle(ctx, userID, title)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, newError(KindNotFound, "No encontré el libro '%s'", title)
	case 1:
		return &matches[0], nil
	}

	var exact []*Book
	for i := range matches {
		if equalFold(matches[i].Title, title) {
			exact = append(exact, &matches[i])
		}
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	titles := make([]string, 0, 3)
	for i := 0; i < len(matches) && i < 3; i++ {
		titles = append(titles, "'"+matches[i].Title+"'")
	}
	return nil, newError(KindAmbiguous,
		"Encontré varios libros: %s. Sé más específico", strings.Join(titles, ", "))
}
