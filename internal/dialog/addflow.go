// internal/dialog/addflow.go
package dialog

import (
	"context"
	"strings"

	"shelfmate/internal/library"
)

// startAdd enters the add-book flow. Slots already recognized on this turn
// are kept, so "agrega el libro Dune" skips straight to the author question
// and a fully-slotted utterance commits in one turn.
func (e *Engine) startAdd(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	title := strings.TrimSpace(turn.Slots[slotTitle])
	if title == "" {
		title = sessionString(sess, sessTitleTemp)
	}
	author := strings.TrimSpace(turn.Slots[slotAuthor])
	if author == "" {
		author = sessionString(sess, sessAuthorTemp)
	}
	category := strings.TrimSpace(turn.Slots[slotCategory])

	if title == "" {
		sess[sessAddingBook] = true
		sess[sessAwaiting] = awaitTitle
		return e.say(sess,
			"¡Perfecto! Vamos a agregar un libro. ¿Cuál es el título?",
			"¿Cuál es el título del libro?"), nil
	}
	sess[sessTitleTemp] = title

	if author == "" {
		sess[sessAddingBook] = true
		sess[sessAwaiting] = awaitAuthor
		return e.say(sess,
			"¡'"+title+"' suena interesante! ¿Quién es el autor? Si no lo sabes, di: no sé.",
			"¿Quién es el autor?"), nil
	}
	sess[sessAuthorTemp] = author

	if category == "" {
		sess[sessAddingBook] = true
		sess[sessAwaiting] = awaitCategory
		speech := "Casi listo con '" + title + "'"
		if !dontKnow(author, awaitAuthor) {
			speech += " de " + author
		}
		speech += ". ¿De qué tipo o género es? Si no sabes, di: no sé."
		return e.say(sess, speech, "¿De qué tipo es el libro?"), nil
	}

	return e.commitAdd(ctx, userID, title, author, category, sess)
}

// continueAdd handles a turn that arrived while the flow is waiting for a
// field. The answer is pulled from whatever slot it landed in; an
// unextractable answer re-prompts the same field with a more explicit
// phrasing and does not advance the state.
func (e *Engine) continueAdd(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	answer := freeText(turn)

	switch sessionString(sess, sessAwaiting) {
	case awaitTitle:
		if answer == "" {
			return e.say(sess,
				"No entendí el título. Di: 'el título es' seguido del nombre.",
				"¿Cuál es el título del libro?"), nil
		}
		sess[sessTitleTemp] = answer
		sess[sessAwaiting] = awaitAuthor
		return e.say(sess,
			"¡'"+answer+"' suena interesante! ¿Quién es el autor? Si no lo sabes, di: no sé el autor.",
			"¿Quién es el autor?"), nil

	case awaitAuthor:
		if answer == "" || dontKnow(answer, awaitAuthor) {
			answer = library.UnknownAuthor
		} else {
			answer = stripFieldPrefix(answer, awaitAuthor)
		}
		sess[sessAuthorTemp] = answer
		sess[sessAwaiting] = awaitCategory

		title := sessionString(sess, sessTitleTemp)
		speech := "Perfecto, '" + title + "'"
		if answer != library.UnknownAuthor {
			speech += " de " + answer
		}
		speech += ". ¿De qué tipo o género es? Si no sabes, di: no sé el tipo."
		return e.say(sess, speech, "¿De qué tipo es el libro?"), nil

	case awaitCategory:
		if answer == "" || dontKnow(answer, awaitCategory) {
			answer = library.UncategorizedType
		} else {
			answer = stripFieldPrefix(answer, awaitCategory)
		}
		title := sessionString(sess, sessTitleTemp)
		author := sessionString(sess, sessAuthorTemp)
		if author == "" {
			author = library.UnknownAuthor
		}
		return e.commitAdd(ctx, userID, title, author, answer, sess)
	}

	// Waiting state is unknown; restart the flow instead of looping on it.
	return Response{
		Speech:   "Hubo un problema. Empecemos de nuevo. ¿Qué libro quieres agregar?",
		Reprompt: "¿Qué libro quieres agregar?",
		Session:  map[string]any{},
	}, nil
}

// commitAdd maps the don't-know sentinels and hands the collected fields to
// the book service. Session state is cleared whether the service accepts the
// book or rejects it with a business error.
func (e *Engine) commitAdd(ctx context.Context, userID, title, author, category string, sess map[string]any) (Response, error) {
	if dontKnow(author, awaitAuthor) {
		author = library.UnknownAuthor
	}
	if dontKnow(category, awaitCategory) {
		category = library.UncategorizedType
	}

	book, err := e.books.AddBook(ctx, userID, title, author, category)
	if err != nil {
		if de, ok := library.AsDomain(err); ok {
			return Response{
				Speech:   de.Message + ". " + choose(anythingElse),
				Reprompt: choose(whatToDo),
				Session:  map[string]any{},
			}, nil
		}
		return Response{}, err
	}

	return Response{
		Speech:   choose(confirmations) + " He agregado '" + book.Title + "' a tu biblioteca. " + choose(anythingElse),
		Reprompt: choose(whatToDo),
		Session:  map[string]any{},
	}, nil
}
