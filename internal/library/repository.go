// internal/library/repository.go
package library

import (
	"context"
	"fmt"
	"log"
	"time"

	"shelfmate/internal/cache"
)

// RecordStore is the boundary with the durable per-user record store. A
// missing record must come back as a fresh empty UserRecord, not an error.
// The store owns its own retry semantics; within one process it guarantees
// read-your-writes for the same key.
type RecordStore interface {
	GetRecord(ctx context.Context, userID string) (*UserRecord, error)
	SaveRecord(ctx context.Context, userID string, rec *UserRecord) error
	DeleteRecord(ctx context.Context, userID string) error
}

const defaultCacheTTL = time.Hour

// Repository mediates every UserRecord round trip through the cache: reads
// go cache-first with the store as fallback, writes go through to the store
// and then invalidate the cached entry so the next read re-validates against
// durable storage.
type Repository struct {
	store RecordStore
	cache *cache.Cache
	ttl   time.Duration
}

// NewRepository wires a repository over the given store and cache.
func NewRepository(store RecordStore, c *cache.Cache) *Repository {
	return &Repository{store: store, cache: c, ttl: defaultCacheTTL}
}

func cacheKey(userID string) string {
	return "user:" + userID
}

// Load returns a mutable copy of the user's record, seeding the cache on a
// miss.
func (r *Repository) Load(ctx context.Context, userID string) (*UserRecord, error) {
	key := cacheKey(userID)
	if cached, ok := r.cache.Get(key); ok {
		if rec, ok := cached.(*UserRecord); ok {
			return rec.Clone(), nil
		}
		// Unexpected entry type under our key; drop it and fall through.
		r.cache.Delete(key)
	}

	rec, err := r.store.GetRecord(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load record for user %s: %w", userID, err)
	}
	rec.Normalize()
	r.cache.Set(key, rec.Clone(), r.ttl)
	return rec, nil
}

// Save writes the record through to the store and invalidates the cache
// entry. The mutated value is deliberately not written into the cache.
func (r *Repository) Save(ctx context.Context, userID string, rec *UserRecord) error {
	rec.Normalize()
	if err := r.store.SaveRecord(ctx, userID, rec); err != nil {
		return fmt.Errorf("save record for user %s: %w", userID, err)
	}
	r.cache.Delete(cacheKey(userID))
	return nil
}

// Wipe deletes the user's durable record and its cached copy.
func (r *Repository) Wipe(ctx context.Context, userID string) error {
	if err := r.store.DeleteRecord(ctx, userID); err != nil {
		return fmt.Errorf("delete record for user %s: %w", userID, err)
	}
	r.cache.Delete(cacheKey(userID))
	log.Printf("wiped record for user %s", userID)
	return nil
}

// Invalidate drops the cached copy so the next read hits the store.
func (r *Repository) Invalidate(userID string) {
	r.cache.Delete(cacheKey(userID))
}

// BookRepository is the book-facing view over the shared user record.
type BookRepository struct {
	repo *Repository
}

// NewBookRepository creates the book view.
func NewBookRepository(repo *Repository) *BookRepository {
	return &BookRepository{repo: repo}
}

// FindAll returns every book in the user's collection.
func (r *BookRepository) FindAll(ctx context.Context, userID string) ([]Book, error) {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Books, nil
}

// FindByID returns the book with the given id, or nil.
func (r *BookRepository) FindByID(ctx context.Context, userID, bookID string) (*Book, error) {
	books, err := r.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range books {
		if books[i].ID == bookID {
			return &books[i], nil
		}
	}
	return nil, nil
}

// FindByTitle returns the books loosely matching title.
func (r *BookRepository) FindByTitle(ctx context.Context, userID, title string) ([]Book, error) {
	books, err := r.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Book
	for i := range books {
		if books[i].MatchesTitle(title) {
			out = append(out, books[i])
		}
	}
	return out, nil
}

// FindByAuthor returns the books loosely matching author.
func (r *BookRepository) FindByAuthor(ctx context.Context, userID, author string) ([]Book, error) {
	books, err := r.FindAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []Book
	for i := range books {
		if books[i].MatchesAuthor(author) {
			out = append(out, books[i])
		}
	}
	return out, nil
}

// ExistsTitle reports whether a case-insensitive exact title match exists.
func (r *BookRepository) ExistsTitle(ctx context.Context, userID, title string) (bool, error) {
	books, err := r.FindAll(ctx, userID)
	if err != nil {
		return false, err
	}
	for i := range books {
		if equalFold(books[i].Title, title) {
			return true, nil
		}
	}
	return false, nil
}

// Save upserts a book inside the user record.
func (r *BookRepository) Save(ctx context.Context, userID string, book Book) error {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return err
	}
	updated := false
	for i := range rec.Books {
		if rec.Books[i].ID == book.ID {
			rec.Books[i] = book
			updated = true
			break
		}
	}
	if !updated {
		rec.Books = append(rec.Books, book)
	}
	return r.repo.Save(ctx, userID, rec)
}

// Delete removes a book by id; it reports whether anything was removed.
func (r *BookRepository) Delete(ctx context.Context, userID, bookID string) (bool, error) {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	kept := rec.Books[:0]
	removed := false
	for _, b := range rec.Books {
		if b.ID == bookID {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return false, nil
	}
	rec.Books = kept
	if err := r.repo.Save(ctx, userID, rec); err != nil {
		return false, err
	}
	return true, nil
}

// LoanRepository is the loan-facing view over the shared user record.
type LoanRepository struct {
	repo *Repository
}

// NewLoanRepository creates the loan view.
func NewLoanRepository(repo *Repository) *LoanRepository {
	return &LoanRepository{repo: repo}
}

// FindActive returns the user's active loans.
func (r *LoanRepository) FindActive(ctx context.Context, userID string) ([]Loan, error) {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.ActiveLoans, nil
}

// FindByBookID returns the active loan referencing bookID, or nil.
func (r *LoanRepository) FindByBookID(ctx context.Context, userID, bookID string) (*Loan, error) {
	loans, err := r.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].BookID == bookID {
			return &loans[i], nil
		}
	}
	return nil, nil
}

// FindActiveByTitle returns the first active loan loosely matching title.
func (r *LoanRepository) FindActiveByTitle(ctx context.Context, userID, title string) (*Loan, error) {
	loans, err := r.FindActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range loans {
		if loans[i].MatchesTitle(title) {
			return &loans[i], nil
		}
	}
	return nil, nil
}

// History returns the full loan history, active loans included.
func (r *LoanRepository) History(ctx context.Context, userID string) ([]Loan, error) {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Loan, 0, len(rec.LoanHistory)+len(rec.ActiveLoans))
	out = append(out, rec.LoanHistory...)
	out = append(out, rec.ActiveLoans...)
	return out, nil
}

// Save upserts an active loan and bumps the aggregate loan counter for new
// ones.
func (r *LoanRepository) Save(ctx context.Context, userID string, loan Loan) error {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return err
	}
	updated := false
	for i := range rec.ActiveLoans {
		if rec.ActiveLoans[i].ID == loan.ID {
			rec.ActiveLoans[i] = loan
			updated = true
			break
		}
	}
	if !updated {
		rec.ActiveLoans = append(rec.ActiveLoans, loan)
		rec.Stats.TotalLoans++
	}
	return r.repo.Save(ctx, userID, rec)
}

// Complete moves a returned loan from the active list into history; it
// reports whether the loan was found among the active ones.
func (r *LoanRepository) Complete(ctx context.Context, userID string, loan Loan) (bool, error) {
	rec, err := r.repo.Load(ctx, userID)
	if err != nil {
		return false, err
	}
	kept := rec.ActiveLoans[:0]
	found := false
	for _, l := range rec.ActiveLoans {
		if l.ID == loan.ID {
			found = true
			continue
		}
		kept = append(kept, l)
	}
	if !found {
		return false, nil
	}
	rec.ActiveLoans = kept
	rec.LoanHistory = append(rec.LoanHistory, loan)
	rec.Stats.TotalReturns++
	if err := r.repo.Save(ctx, userID, rec); err != nil {
		return false, err
	}
	return true, nil
}
