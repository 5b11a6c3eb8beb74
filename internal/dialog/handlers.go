// internal/dialog/handlers.go
package dialog

import (
	"context"
	"strconv"
	"strings"

	"shelfmate/internal/library"
)

func (e *Engine) handleLoan(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	title := strings.TrimSpace(turn.Slots[slotTitle])
	borrower := strings.TrimSpace(turn.Slots[slotBorrower])
	if title == "" {
		return e.say(sess, "¿Qué libro quieres prestar?", "¿Cuál es el título del libro?"), nil
	}

	loan, err := e.loans.CreateLoan(ctx, userID, "", title, borrower, 0)
	if err != nil {
		if de, ok := library.AsDomain(err); ok {
			return e.say(sess, de.Message+". ¿Quieres intentar con otro libro?",
				"¿Quieres intentar con otro libro?"), nil
		}
		return Response{}, err
	}

	speech := choose(confirmations) + " He registrado el préstamo de '" + loan.Title + "' a " +
		loan.Borrower + ". La fecha de devolución es el " + formatDateES(loan.DueAt) + ". " +
		choose(anythingElse)
	return e.say(sess, speech, choose(whatToDo)), nil
}

func (e *Engine) handleReturn(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	title := strings.TrimSpace(turn.Slots[slotTitle])
	loanID := strings.TrimSpace(turn.Slots[slotLoanID])
	if title == "" && loanID == "" {
		return e.say(sess, "¿Qué libro te devolvieron?", "Dime el título del libro."), nil
	}

	loan, onTime, err := e.loans.ReturnLoan(ctx, userID, loanID, title)
	if err != nil {
		if de, ok := library.AsDomain(err); ok {
			return e.say(sess, de.Message+". ¿Cuál libro quieres devolver?",
				"¿Cuál libro quieres devolver?"), nil
		}
		return Response{}, err
	}

	speech := choose(confirmations) + " He registrado la devolución de '" + loan.Title + "'. "
	if onTime {
		speech += "¡Fue devuelto a tiempo! "
	} else {
		speech += "Fue devuelto un poco tarde, pero no hay problema. "
	}
	speech += choose(anythingElse)
	return e.say(sess, speech, choose(whatToDo)), nil
}

func (e *Engine) handleActiveLoans(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	loans, err := e.loans.ActiveLoans(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	if len(loans) == 0 {
		return e.say(sess,
			"¡Excelente! No tienes ningún libro prestado en este momento. "+choose(anythingElse),
			choose(whatToDo)), nil
	}

	var speech strings.Builder
	if len(loans) == 1 {
		speech.WriteString("Déjame ver... Solo tienes un libro prestado: ")
	} else {
		speech.WriteString("Déjame revisar... Tienes " + strconv.Itoa(len(loans)) + " libros prestados: ")
	}

	now := e.clock()
	var details []string
	overdue, dueSoon := false, false
	for i, l := range loans {
		if i == 5 {
			break
		}
		days := l.DaysLeft(now)
		text := "'" + l.Title + "' está con " + l.Borrower
		switch {
		case days < 0:
			text += " (¡ya venció!)"
			overdue = true
		case days == 0:
			text += " (vence hoy)"
			dueSoon = true
		case days <= 2:
			text += " (vence en " + strconv.Itoa(days) + " días)"
			dueSoon = true
		}
		details = append(details, text)
	}
	speech.WriteString(strings.Join(details, "; ") + ". ")
	if len(loans) > 5 {
		speech.WriteString("Y " + strconv.Itoa(len(loans)-5) + " más. ")
	}
	if overdue {
		speech.WriteString("Te sugiero pedir la devolución de los libros vencidos. ")
	} else if dueSoon {
		speech.WriteString("Algunos están por vencer, ¡no lo olvides! ")
	}
	speech.WriteString(choose(anythingElse))
	return e.say(sess, speech.String(), choose(whatToDo)), nil
}

func (e *Engine) handleReturnedLoans(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	history, err := e.loans.LoanHistory(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	var returned []library.Loan
	for _, l := range history {
		if l.Status == library.LoanReturned {
			returned = append(returned, l)
		}
	}

	var speech strings.Builder
	if len(returned) == 0 {
		speech.WriteString("Aún no has registrado devoluciones. Cuando prestes libros y te los devuelvan, aparecerán aquí. ")
	} else {
		total := len(returned)
		if total == 1 {
			speech.WriteString("Has registrado 1 devolución en total. ")
		} else {
			speech.WriteString("Has registrado " + strconv.Itoa(total) + " devoluciones en total. ")
		}
		recent := returned
		if total > 10 {
			recent = returned[total-5:]
			speech.WriteString("Los 5 más recientes son: ")
		} else {
			speech.WriteString("Los libros devueltos son: ")
		}
		var details []string
		for i := len(recent) - 1; i >= 0; i-- {
			d := "'" + recent[i].Title + "'"
			if recent[i].Borrower != library.DefaultBorrower {
				d += " que prestaste a " + recent[i].Borrower
			}
			details = append(details, d)
		}
		speech.WriteString(strings.Join(details, ", ") + ". ")
	}
	speech.WriteString(choose(anythingElse))
	return e.say(sess, speech.String(), choose(whatToDo)), nil
}

func (e *Engine) handleSearch(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	title := strings.TrimSpace(turn.Slots[slotTitle])
	author := strings.TrimSpace(turn.Slots[slotAuthor])
	if title == "" && author == "" {
		return e.say(sess, "¿Qué libro quieres buscar?", "Dime el título del libro que buscas."), nil
	}

	var (
		found []library.Book
		err   error
		term  = title
	)
	if title != "" {
		found, err = e.books.SearchByTitle(ctx, userID, title)
	} else {
		term = author
		found, err = e.books.SearchByAuthor(ctx, userID, author)
	}
	if err != nil {
		return Response{}, err
	}

	switch len(found) {
	case 0:
		return e.say(sess,
			"No encontré ningún libro que coincida con '"+term+"'. "+choose(anythingElse),
			choose(whatToDo)), nil
	case 1:
		b := found[0]
		speech := "Encontré '" + b.Title + "'. Autor: " + b.Author + ". Tipo: " + b.Category +
			". Estado: " + string(b.Status) + ". "
		if b.LoanCount == 1 {
			speech += "Ha sido prestado 1 vez. "
		} else if b.LoanCount > 1 {
			speech += "Ha sido prestado " + strconv.Itoa(b.LoanCount) + " veces. "
		}
		speech += choose(anythingElse)
		return e.say(sess, speech, choose(whatToDo)), nil
	default:
		shown := found
		if len(shown) > 3 {
			shown = shown[:3]
		}
		speech := "Encontré " + strconv.Itoa(len(found)) + " libros que coinciden con '" + term +
			"': " + joinTitles(shown) + ". " + choose(anythingElse)
		return e.say(sess, speech, choose(whatToDo)), nil
	}
}

// handleDelete removes a book. When an active loan blocks the delete, the
// engine either asks for confirmation to register the return and retry, or
// cascades directly when AutoCascadeDelete is configured.
func (e *Engine) handleDelete(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	title := strings.TrimSpace(turn.Slots[slotTitle])
	bookID := strings.TrimSpace(turn.Slots[slotBookID])
	if title == "" && bookID == "" {
		return e.say(sess,
			"¿Cuál libro quieres eliminar? Puedes decir el título.",
			"Dime el título del libro que quieres borrar."), nil
	}

	book, err := e.books.DeleteBook(ctx, userID, bookID, title)
	if err == nil {
		return e.say(sess,
			"He eliminado '"+book.Title+"' de tu biblioteca. "+choose(anythingElse),
			choose(whatToDo)), nil
	}

	de, ok := library.AsDomain(err)
	if !ok {
		return Response{}, err
	}
	if de.Kind != library.KindConflict || book == nil {
		return e.say(sess, de.Message+". ¿Quieres eliminar otro libro?",
			"¿Quieres eliminar otro libro?"), nil
	}

	if e.autoCascade {
		return e.cascadeDelete(ctx, userID, book.ID, book.Title, sess)
	}

	sess[sessDeleteBookID] = book.ID
	sess[sessDeleteTitle] = book.Title
	return e.say(sess,
		de.Message+". ¿Quieres que registre la devolución y lo elimine de todos modos? Di sí o no.",
		"¿Registro la devolución y elimino el libro? Di sí o no."), nil
}

func (e *Engine) confirmDelete(ctx context.Context, userID string, confirmed bool, sess map[string]any) (Response, error) {
	bookID := sessionString(sess, sessDeleteBookID)
	title := sessionString(sess, sessDeleteTitle)
	delete(sess, sessDeleteBookID)
	delete(sess, sessDeleteTitle)

	if !confirmed {
		return e.say(sess,
			"De acuerdo, '"+title+"' se queda en tu biblioteca. "+choose(anythingElse),
			choose(whatToDo)), nil
	}
	return e.cascadeDelete(ctx, userID, bookID, title, sess)
}

// cascadeDelete returns the blocking loan first and then retries the delete.
func (e *Engine) cascadeDelete(ctx context.Context, userID, bookID, title string, sess map[string]any) (Response, error) {
	if _, _, err := e.loans.ReturnLoan(ctx, userID, "", title); err != nil {
		if de, ok := library.AsDomain(err); ok {
			return e.say(sess, de.Message+". "+choose(anythingElse), choose(whatToDo)), nil
		}
		return Response{}, err
	}

	book, err := e.books.DeleteBook(ctx, userID, bookID, "")
	if err != nil {
		if de, ok := library.AsDomain(err); ok {
			return e.say(sess, de.Message+". "+choose(anythingElse), choose(whatToDo)), nil
		}
		return Response{}, err
	}
	return e.say(sess,
		"He registrado la devolución y eliminado '"+book.Title+"'. "+choose(anythingElse),
		choose(whatToDo)), nil
}

func (e *Engine) handleStatistics(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	bookStats, err := e.books.Statistics(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	loanStats, err := e.loans.Statistics(ctx, userID)
	if err != nil {
		return Response{}, err
	}

	if bookStats.Total == 0 {
		return e.say(sess,
			"Tu biblioteca está vacía. ¡Agreguemos tu primer libro! ¿Cuál es el título?",
			"¿Qué libro quieres agregar?"), nil
	}

	var speech strings.Builder
	speech.WriteString("Tienes " + strconv.Itoa(bookStats.Total) + " libros: " +
		strconv.Itoa(bookStats.Available) + " disponibles y " +
		strconv.Itoa(bookStats.Loaned) + " prestados. ")
	if loanStats.Completed > 0 {
		speech.WriteString("Has registrado " + strconv.Itoa(loanStats.Completed) + " devoluciones, " +
			strconv.Itoa(loanStats.OnTimeReturns) + " a tiempo. ")
	}
	if bookStats.MostLoaned != nil {
		speech.WriteString("Tu libro más prestado es '" + bookStats.MostLoaned.Title + "'. ")
	}
	if loanStats.MostFrequentBorrower != "" && loanStats.MostFrequentBorrower != library.DefaultBorrower {
		speech.WriteString("Quien más te pide libros es " + loanStats.MostFrequentBorrower + ". ")
	}
	speech.WriteString(choose(anythingElse))
	return e.say(sess, speech.String(), choose(whatToDo)), nil
}

// handleRefreshCache drops the cached record and reads back from durable
// storage, reporting the fresh counts.
func (e *Engine) handleRefreshCache(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	e.records.Invalidate(userID)
	rec, err := e.records.Load(ctx, userID)
	if err != nil {
		return Response{}, err
	}
	speech := "He actualizado tus datos. Tienes " + strconv.Itoa(len(rec.Books)) +
		" libros en total y " + strconv.Itoa(len(rec.ActiveLoans)) + " préstamos activos. " +
		choose(anythingElse)
	return e.say(map[string]any{}, speech, choose(whatToDo)), nil
}

func (e *Engine) startWipe(sess map[string]any) (Response, error) {
	sess[sessConfirmWipe] = true
	return e.say(sess,
		"Esto borrará todos tus libros, préstamos e historial. ¿Seguro que quieres continuar? Di sí o no.",
		"¿Borro toda tu biblioteca? Di sí o no."), nil
}

func (e *Engine) confirmWipe(ctx context.Context, userID string, confirmed bool, sess map[string]any) (Response, error) {
	delete(sess, sessConfirmWipe)

	if !confirmed {
		return e.say(sess, "Menos mal. Tu biblioteca sigue intacta. "+choose(anythingElse),
			choose(whatToDo)), nil
	}
	if !e.wipeLimiter.Allow() {
		return e.say(sess,
			"He recibido demasiadas solicitudes de borrado seguidas. Espera un momento e inténtalo de nuevo.",
			choose(whatToDo)), nil
	}
	if err := e.records.Wipe(ctx, userID); err != nil {
		return Response{}, err
	}
	return Response{
		Speech:   "Listo, tu biblioteca quedó vacía. Cuando quieras empezamos de nuevo. " + choose(whatToDo),
		Reprompt: choose(whatToDo),
		Session:  map[string]any{},
	}, nil
}
