// internal/dialog/listing.go
package dialog

import (
	"context"
	"strconv"
	"strings"

	"shelfmate/internal/library"
)

// handleList starts (or continues) a listing. The author/filter slots from
// this turn win; otherwise an ongoing listing keeps its saved filter so
// "siguiente" repeats the same query instead of falling back to all books.
func (e *Engine) handleList(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	author := strings.TrimSpace(turn.Slots[slotAuthor])
	filter := strings.TrimSpace(turn.Slots[slotFilter])
	if author == "" && filter == "" && sessionBool(sess, sessListing) {
		author = sessionString(sess, sessListAuthor)
		filter = sessionString(sess, sessListFilter)
	}

	books, err := e.fetchListing(ctx, userID, author, filter)
	if err != nil {
		return Response{}, err
	}
	if len(books) == 0 {
		e.clearListing(sess)
		return e.say(sess,
			"No encontré libros con ese filtro. "+choose(anythingElse),
			choose(whatToDo)), nil
	}

	return e.renderListing(books, sessionInt(sess, sessPage), author, filter, sess), nil
}

// handleNextPage advances an ongoing listing.
func (e *Engine) handleNextPage(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	if !sessionBool(sess, sessListing) {
		return e.say(sess,
			"No estás en un listado, pero puedo listar tus libros. ¿Quieres que los muestre?",
			"¿Quieres que muestre tus libros?"), nil
	}

	author := sessionString(sess, sessListAuthor)
	filter := sessionString(sess, sessListFilter)
	books, err := e.fetchListing(ctx, userID, author, filter)
	if err != nil {
		return Response{}, err
	}

	page := sessionInt(sess, sessPage)
	if page*e.pageSize >= len(books) {
		e.clearListing(sess)
		return e.say(sess,
			"Ya no hay más libros para mostrar. "+choose(anythingElse),
			choose(whatToDo)), nil
	}
	return e.renderListing(books, page, author, filter, sess), nil
}

// handleExitListing abandons the listing on an explicit "salir".
func (e *Engine) handleExitListing(sess map[string]any) (Response, error) {
	e.clearListing(sess)
	return e.say(sess,
		"De acuerdo, salgo del listado. "+choose(anythingElse),
		choose(whatToDo)), nil
}

func (e *Engine) fetchListing(ctx context.Context, userID, author, filter string) ([]library.Book, error) {
	if author != "" {
		return e.books.SearchByAuthor(ctx, userID, author)
	}
	switch strings.ToLower(filter) {
	case "prestados", "prestado":
		return e.books.LoanedBooks(ctx, userID)
	case "disponibles", "disponible":
		return e.books.AvailableBooks(ctx, userID)
	}
	return e.books.AllBooks(ctx, userID)
}

// renderListing speaks one page and updates the pagination cursor: short
// lists come back whole with the listing state cleared, longer ones advance
// the page and retain the filter for the next turn.
func (e *Engine) renderListing(books []library.Book, page int, author, filter string, sess map[string]any) Response {
	total := len(books)
	if total <= e.pageSize {
		titles := joinTitles(books)
		e.clearListing(sess)
		return e.say(sess,
			"Tienes "+strconv.Itoa(total)+" libros: "+titles+". "+choose(anythingElse),
			choose(whatToDo))
	}

	// The saved cursor can point past the end when the filtered list shrank
	// between turns (books deleted mid-listing); start over from page one.
	start := page * e.pageSize
	if start >= total {
		page = 0
		start = 0
	}
	end := start + e.pageSize
	if end > total {
		end = total
	}

	var speech strings.Builder
	if page == 0 {
		speech.WriteString("Tienes " + strconv.Itoa(total) + " libros. Te los mostraré de " +
			strconv.Itoa(e.pageSize) + " en " + strconv.Itoa(e.pageSize) + ". ")
	} else {
		speech.WriteString("Página " + strconv.Itoa(page+1) + ". ")
	}
	speech.WriteString("Libros del " + strconv.Itoa(start+1) + " al " + strconv.Itoa(end) + ": " +
		joinTitles(books[start:end]) + ". ")

	if end < total {
		speech.WriteString("Quedan " + strconv.Itoa(total-end) +
			" libros más. Di 'siguiente' para continuar o 'salir' para terminar.")
		sess[sessPage] = page + 1
		sess[sessListing] = true
		sess[sessListAuthor] = author
		sess[sessListFilter] = filter
		return e.say(sess, speech.String(), "¿Quieres ver más libros? Di 'siguiente' o 'salir'.")
	}

	speech.WriteString("Esos son todos los libros. " + choose(anythingElse))
	e.clearListing(sess)
	return e.say(sess, speech.String(), choose(whatToDo))
}

func (e *Engine) clearListing(sess map[string]any) {
	sess[sessPage] = 0
	sess[sessListing] = false
	delete(sess, sessListAuthor)
	delete(sess, sessListFilter)
}

func joinTitles(books []library.Book) string {
	titles := make([]string, len(books))
	for i, b := range books {
		titles[i] = "'" + b.Title + "'"
	}
	return strings.Join(titles, ", ")
}
