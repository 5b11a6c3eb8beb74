// internal/library/implementation_test.go
package library

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfmate/internal/cache"
)

const testUser = "user-1"

// stubStore is an in-memory RecordStore for tests.
type stubStore struct {
	recs map[string]*UserRecord
}

func newStubStore() *stubStore {
	return &stubStore{recs: make(map[string]*UserRecord)}
}

func (s *stubStore) GetRecord(_ context.Context, userID string) (*UserRecord, error) {
	if rec, ok := s.recs[userID]; ok {
		return rec.Clone(), nil
	}
	return NewUserRecord(), nil
}

func (s *stubStore) SaveRecord(_ context.Context, userID string, rec *UserRecord) error {
	s.recs[userID] = rec.Clone()
	return nil
}

func (s *stubStore) DeleteRecord(_ context.Context, userID string) error {
	delete(s.recs, userID)
	return nil
}

type fixture struct {
	books   BookService
	loans   LoanService
	records *Repository
	store   *stubStore
	now     *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newStubStore()
	records := NewRepository(store, cache.New())
	bookRepo := NewBookRepository(records)
	loanRepo := NewLoanRepository(records)
	clock := func() time.Time { return now }

	return &fixture{
		books:   NewBookService(bookRepo, loanRepo, clock),
		loans:   NewLoanService(bookRepo, loanRepo, records, clock),
		records: records,
		store:   store,
		now:     &now,
	}
}

func (f *fixture) addBook(t *testing.T, title, author, category string) *Book {
	t.Helper()
	book, err := f.books.AddBook(context.Background(), testUser, title, author, category)
	require.NoError(t, err)
	return book
}

func TestAddBook(t *testing.T) {
	f := newFixture(t)

	book := f.addBook(t, "Cien Años de Soledad", "Gabriel García Márquez", "novela")

	assert.NotEmpty(t, book.ID)
	assert.Equal(t, "Cien Años de Soledad", book.Title)
	assert.Equal(t, BookAvailable, book.Status)
	assert.Equal(t, *f.now, book.AddedAt)
}

func TestAddBookDefaultsOptionalFields(t *testing.T) {
	f := newFixture(t)

	book := f.addBook(t, "Rayuela", "", "")

	assert.Equal(t, UnknownAuthor, book.Author)
	assert.Equal(t, UncategorizedType, book.Category)
}

func TestAddBookRequiresTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.books.AddBook(context.Background(), testUser, "   ", "", "")
	assert.True(t, IsKind(err, KindValidation))
}

func TestAddBookRejectsOverlongTitle(t *testing.T) {
	f := newFixture(t)

	_, err := f.books.AddBook(context.Background(), testUser, strings.Repeat("a", 201), "", "")
	assert.True(t, IsKind(err, KindValidation))

	book, err := f.books.AddBook(context.Background(), testUser, strings.Repeat("a", 200), "", "")
	require.NoError(t, err)
	assert.Len(t, []rune(book.Title), 200)
}

func TestAddBookRejectsOverlongAuthor(t *testing.T) {
	f := newFixture(t)

	_, err := f.books.AddBook(context.Background(), testUser, "Dune", strings.Repeat("a", 101), "")
	assert.True(t, IsKind(err, KindValidation))

	_, err = f.books.AddBook(context.Background(), testUser, "Dune", strings.Repeat("a", 100), "")
	require.NoError(t, err)
}

func TestAddBookRejectsDuplicateTitle(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "El Aleph", "Borges", "")

	_, err := f.books.AddBook(context.Background(), testUser, "el aleph", "", "")
	assert.True(t, IsKind(err, KindDuplicate), "duplicate check must be case-insensitive")
}

func TestDeleteBook(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Ficciones", "Borges", "cuentos")

	deleted, err := f.books.DeleteBook(context.Background(), testUser, "", "Ficciones")
	require.NoError(t, err)
	assert.Equal(t, book.ID, deleted.ID)

	all, err := f.books.AllBooks(context.Background(), testUser)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteBookBlockedByActiveLoan(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Ficciones", "Borges", "cuentos")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Ficciones", "Ana", 0)
	require.NoError(t, err)

	book, err := f.books.DeleteBook(context.Background(), testUser, "", "Ficciones")
	assert.True(t, IsKind(err, KindConflict))
	require.NotNil(t, book, "the blocked book must come back so the caller can cascade")
	assert.Equal(t, "Ficciones", book.Title)

	all, err := f.books.AllBooks(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestResolveBookAmbiguousTitle(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Historia de Roma", "Mommsen", "")
	f.addBook(t, "Historia de España", "Vilar", "")

	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Historia", "Ana", 0)
	assert.True(t, IsKind(err, KindAmbiguous))
}

func TestResolveBookPrefersExactMatch(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	f.addBook(t, "Dune Mesías", "Herbert", "")

	loan, err := f.loans.CreateLoan(context.Background(), testUser, "", "dune", "Ana", 0)
	require.NoError(t, err)
	assert.Equal(t, "Dune", loan.Title)
}

func TestCreateLoan(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", "Herbert", "ciencia ficción")

	loan, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Carlos", 0)
	require.NoError(t, err)

	assert.Equal(t, book.ID, loan.BookID)
	assert.Equal(t, "Carlos", loan.Borrower)
	assert.Equal(t, LoanActive, loan.Status)
	assert.Equal(t, f.now.AddDate(0, 0, DefaultLoanDays), loan.DueAt)

	loaned, err := f.books.LoanedBooks(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, loaned, 1)
	assert.Equal(t, 1, loaned[0].LoanCount)
}

func TestCreateLoanDefaultsBorrower(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")

	loan, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "  ", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBorrower, loan.Borrower)
}

func TestCreateLoanRejectsAlreadyLoaned(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	_, err = f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Carlos", 0)
	assert.True(t, IsKind(err, KindAlreadyLoaned))
}

func TestCreateLoanEnforcesActiveLimit(t *testing.T) {
	f := newFixture(t)
	titles := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"}
	for _, title := range titles {
		f.addBook(t, title, "", "")
	}

	for i := 0; i < DefaultMaxActiveLoans; i++ {
		_, err := f.loans.CreateLoan(context.Background(), testUser, "", titles[i], "Ana", 0)
		require.NoError(t, err)
	}

	_, err := f.loans.CreateLoan(context.Background(), testUser, "", titles[DefaultMaxActiveLoans], "Ana", 0)
	assert.True(t, IsKind(err, KindLimitExceeded))
}

func TestReturnLoanOnTime(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	*f.now = f.now.AddDate(0, 0, 3)
	loan, onTime, err := f.loans.ReturnLoan(context.Background(), testUser, "", "Dune")
	require.NoError(t, err)
	assert.True(t, onTime)
	assert.Equal(t, LoanReturned, loan.Status)

	available, err := f.books.AvailableBooks(context.Background(), testUser)
	require.NoError(t, err)
	assert.Len(t, available, 1)
}

func TestReturnLoanLate(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	*f.now = f.now.AddDate(0, 0, DefaultLoanDays+2)
	_, onTime, err := f.loans.ReturnLoan(context.Background(), testUser, "", "Dune")
	require.NoError(t, err)
	assert.False(t, onTime)
}

func TestReturnLoanTwice(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	_, _, err = f.loans.ReturnLoan(context.Background(), testUser, "", "Dune")
	require.NoError(t, err)

	_, _, err = f.loans.ReturnLoan(context.Background(), testUser, "", "Dune")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestStatusDerivedFromActiveLoans(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	// Corrupt the persisted status; listings must rederive it from the
	// active-loan set, not trust what was stored.
	stored := f.store.recs[testUser]
	for i := range stored.Books {
		if stored.Books[i].ID == book.ID {
			stored.Books[i].Status = BookAvailable
		}
	}
	f.records.Invalidate(testUser)

	all, err := f.books.AllBooks(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, BookOnLoan, all[0].Status)
}

func TestActiveLoansMarkOverdue(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	*f.now = f.now.AddDate(0, 0, DefaultLoanDays+1)
	loans, err := f.loans.ActiveLoans(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, LoanOverdue, loans[0].Status)
}

func TestLoansDueSoon(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Pronto", "", "")
	f.addBook(t, "Lejano", "", "")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Pronto", "Ana", 2)
	require.NoError(t, err)
	_, err = f.loans.CreateLoan(context.Background(), testUser, "", "Lejano", "Ana", 14)
	require.NoError(t, err)

	due, err := f.loans.LoansDueSoon(context.Background(), testUser, 2)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "Pronto", due[0].Title)
}

func TestExtendLoan(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	loan, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	extended, err := f.loans.ExtendLoan(context.Background(), testUser, loan.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, loan.DueAt.AddDate(0, 0, 5), extended.DueAt)
	assert.Equal(t, loan.LoanDays+5, extended.LoanDays)
}

func TestExtendLoanValidatesDays(t *testing.T) {
	f := newFixture(t)

	_, err := f.loans.ExtendLoan(context.Background(), testUser, "PREST-X", 0)
	assert.True(t, IsKind(err, KindValidation))
}

func TestBookStatistics(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "ciencia ficción")
	f.addBook(t, "Ficciones", "Borges", "cuentos")
	f.addBook(t, "El Aleph", "Borges", "cuentos")
	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)

	stats, err := f.books.Statistics(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Available)
	assert.Equal(t, 1, stats.Loaned)
	assert.Equal(t, 2, stats.ByCategory["cuentos"])
	assert.Equal(t, 2, stats.ByAuthor["Borges"])
	require.NotNil(t, stats.MostLoaned)
	assert.Equal(t, "Dune", stats.MostLoaned.Title)
}

func TestLoanStatistics(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Dune", "Herbert", "")
	f.addBook(t, "Ficciones", "Borges", "")

	_, err := f.loans.CreateLoan(context.Background(), testUser, "", "Dune", "Ana", 0)
	require.NoError(t, err)
	_, _, err = f.loans.ReturnLoan(context.Background(), testUser, "", "Dune")
	require.NoError(t, err)

	_, err = f.loans.CreateLoan(context.Background(), testUser, "", "Ficciones", "Ana", 0)
	require.NoError(t, err)

	stats, err := f.loans.Statistics(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.OnTimeReturns)
	assert.Equal(t, "Ana", stats.MostFrequentBorrower)
}

func TestSearchMatchesLoosely(t *testing.T) {
	f := newFixture(t)
	f.addBook(t, "Cien Años de Soledad", "Gabriel García Márquez", "")

	byTitle, err := f.books.SearchByTitle(context.Background(), testUser, "cien años")
	require.NoError(t, err)
	assert.Len(t, byTitle, 1)

	byAuthor, err := f.books.SearchByAuthor(context.Background(), testUser, "garcía márquez")
	require.NoError(t, err)
	assert.Len(t, byAuthor, 1)
}
