// internal/library/domain.go
package library

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sentinel values substituted for unanswered optional fields, so the rest of
// the system never has to deal with empty authors or categories.
const (
	UnknownAuthor     = "Desconocido"
	UncategorizedType = "Sin categoría"
	DefaultBorrower   = "un amigo"
)

const (
	// SchemaVersion is stored inside every UserRecord; Normalize upgrades
	// older or partial records to this shape.
	SchemaVersion = "2.0"

	DefaultMaxActiveLoans = 10
	DefaultLoanDays       = 7

	maxTitleLen  = 200
	maxAuthorLen = 100
)

// BookStatus is derived from the active-loan set, never set by callers.
type BookStatus string

const (
	BookAvailable BookStatus = "disponible"
	BookOnLoan    BookStatus = "prestado"
)

// LoanStatus describes the lifecycle of a loan. Overdue is computed at read
// time from the due date while the loan is still active; it is never a
// terminal persisted state.
type LoanStatus string

const (
	LoanActive   LoanStatus = "activo"
	LoanReturned LoanStatus = "devuelto"
	LoanOverdue  LoanStatus = "vencido"
)

// Book is a single entry in a user's collection.
type Book struct {
	ID        string     `json:"id"`
	Title     string     `json:"titulo"`
	Author    string     `json:"autor"`
	Category  string     `json:"tipo"`
	AddedAt   time.Time  `json:"fecha_agregado"`
	Status    BookStatus `json:"estado"`
	LoanCount int        `json:"total_prestamos"`
}

// Available reports whether the book can be loaned out.
func (b *Book) Available() bool {
	return b.Status != BookOnLoan
}

// MatchesTitle checks a partial, case-insensitive title match in either
// direction, so "el quijote" finds "Don Quijote de la Mancha" and vice versa.
func (b *Book) MatchesTitle(term string) bool {
	return looseMatch(b.Title, term)
}

// MatchesAuthor checks a partial, case-insensitive author match.
func (b *Book) MatchesAuthor(term string) bool {
	return looseMatch(b.Author, term)
}

// Loan records a book handed out to a borrower. Title is denormalized from
// the book at loan time so history survives book deletion.
type Loan struct {
	ID         string     `json:"id"`
	BookID     string     `json:"libro_id"`
	Title      string     `json:"titulo"`
	Borrower   string     `json:"persona"`
	LoanedAt   time.Time  `json:"fecha_prestamo"`
	DueAt      time.Time  `json:"fecha_limite"`
	ReturnedAt *time.Time `json:"fecha_devolucion,omitempty"`
	Status     LoanStatus `json:"estado"`
	LoanDays   int        `json:"dias_prestamo"`
}

// Active reports whether the loan has not been returned yet.
func (l *Loan) Active() bool {
	return l.Status == LoanActive || l.Status == LoanOverdue
}

// OverdueAt reports whether an active loan has passed its due date.
func (l *Loan) OverdueAt(now time.Time) bool {
	return l.Active() && now.After(l.DueAt)
}

// DaysLeft returns the whole days remaining until the due date, negative when
// the loan is overdue and zero for non-active loans.
func (l *Loan) DaysLeft(now time.Time) int {
	if !l.Active() {
		return 0
	}
	return int(l.DueAt.Sub(now).Hours() / 24)
}

// ReturnedOnTime reports whether a returned loan came back within its term.
func (l *Loan) ReturnedOnTime() bool {
	if l.Status != LoanReturned || l.ReturnedAt == nil {
		return false
	}
	return !l.ReturnedAt.After(l.DueAt)
}

// MatchesTitle checks a partial, case-insensitive match against the
// denormalized loan title.
func (l *Loan) MatchesTitle(term string) bool {
	return looseMatch(l.Title, term)
}

// Stats are the aggregate counters kept inside the user record.
type Stats struct {
	TotalBooks   int `json:"total_libros"`
	TotalLoans   int `json:"total_prestamos"`
	TotalReturns int `json:"total_devoluciones"`
}

// Config holds per-user lending policy.
type Config struct {
	MaxActiveLoans int `json:"limite_prestamos"`
	LoanDays       int `json:"dias_prestamo"`
}

// UserRecord is the per-user aggregate root. The persistent store owns
// exactly one record per user key; the cache holds a time-bounded copy and
// repositories round-trip load→mutate→save on every operation.
type UserRecord struct {
	Books       []Book `json:"libros_disponibles"`
	ActiveLoans []Loan `json:"prestamos_activos"`
	LoanHistory []Loan `json:"historial_prestamos"`
	Stats       Stats  `json:"estadisticas"`
	Config      Config `json:"configuracion"`
	Version     string `json:"version"`
}

// NewUserRecord returns an empty record at the current schema version.
func NewUserRecord() *UserRecord {
	rec := &UserRecord{}
	rec.Normalize()
	return rec
}

// Normalize upgrades a record loaded from storage to the current schema:
// missing sections get defaults, entries without the minimum required fields
// are dropped, sentinel values replace blank optional fields and the derived
// counters are recomputed. It is applied on every load so partial or stale
// writes can never leak malformed data into the services.
func (r *UserRecord) Normalize() {
	if r.Config.MaxActiveLoans <= 0 {
		r.Config.MaxActiveLoans = DefaultMaxActiveLoans
	}
	if r.Config.LoanDays <= 0 {
		r.Config.LoanDays = DefaultLoanDays
	}

	books := r.Books[:0]
	for i := range r.Books {
		b := r.Books[i]
		b.Title = strings.TrimSpace(b.Title)
		if b.Title == "" {
			continue
		}
		if b.ID == "" {
			b.ID = NewBookID()
		}
		if strings.TrimSpace(b.Author) == "" {
			b.Author = UnknownAuthor
		}
		if strings.TrimSpace(b.Category) == "" {
			b.Category = UncategorizedType
		}
		if b.Status != BookOnLoan {
			b.Status = BookAvailable
		}
		if b.LoanCount < 0 {
			b.LoanCount = 0
		}
		books = append(books, b)
	}
	r.Books = books

	active := r.ActiveLoans[:0]
	for i := range r.ActiveLoans {
		l := r.ActiveLoans[i]
		if l.BookID == "" {
			continue
		}
		if l.ID == "" {
			l.ID = NewLoanID(time.Now())
		}
		if strings.TrimSpace(l.Borrower) == "" {
			l.Borrower = DefaultBorrower
		}
		if l.Status == "" {
			l.Status = LoanActive
		}
		active = append(active, l)
	}
	r.ActiveLoans = active

	if r.LoanHistory == nil {
		r.LoanHistory = []Loan{}
	}

	r.Stats.TotalBooks = len(r.Books)
	r.Version = SchemaVersion
}

// Clone returns a deep copy, so a cached record can be handed out for
// mutation without corrupting the cached value.
func (r *UserRecord) Clone() *UserRecord {
	cp := *r
	cp.Books = append([]Book(nil), r.Books...)
	cp.ActiveLoans = make([]Loan, len(r.ActiveLoans))
	for i, l := range r.ActiveLoans {
		cp.ActiveLoans[i] = cloneLoan(l)
	}
	cp.LoanHistory = make([]Loan, len(r.LoanHistory))
	for i, l := range r.LoanHistory {
		cp.LoanHistory[i] = cloneLoan(l)
	}
	return &cp
}

func cloneLoan(l Loan) Loan {
	if l.ReturnedAt != nil {
		at := *l.ReturnedAt
		l.ReturnedAt = &at
	}
	return l
}

// NewBookID generates a short opaque identifier, unique enough within a
// single user's collection.
func NewBookID() string {
	return uuid.New().String()[:8]
}

// NewLoanID generates a loan identifier carrying the loan date, e.g.
// "PREST-20260831-1a2b3c4d".
func NewLoanID(now time.Time) string {
	return "PREST-" + now.Format("20060102") + "-" + uuid.New().String()[:8]
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func looseMatch(value, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return false
	}
	value = strings.ToLower(value)
	return strings.Contains(value, term) || strings.Contains(term, value)
}
