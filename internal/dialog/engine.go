// internal/dialog/engine.go
package dialog

import (
	"context"
	"log"
	"math/rand/v2"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"shelfmate/internal/library"
)

// Options tune the engine's conversational policy.
type Options struct {
	// PageSize is the number of books spoken per listing page.
	PageSize int
	// AutoCascadeDelete makes a blocked delete register the pending return
	// itself instead of asking for confirmation first.
	AutoCascadeDelete bool
	// WipeLimit throttles full-library wipes; zero means one per minute.
	WipeLimit rate.Limit
	Clock     library.Clock
}

const defaultPageSize = 10

// Engine drives one conversation turn at a time: it inspects the session
// variables to continue an in-progress flow, otherwise dispatches on the
// turn's intent. The host runtime serializes turns per conversation, so the
// engine itself holds no per-conversation state.
type Engine struct {
	books   library.BookService
	loans   library.LoanService
	records *library.Repository

	pageSize    int
	autoCascade bool
	wipeLimiter *rate.Limiter
	clock       library.Clock
}

// NewEngine wires the engine over the domain services. The repository is
// needed only for the cache-refresh and wipe intents.
func NewEngine(books library.BookService, loans library.LoanService, records *library.Repository, opts Options) *Engine {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.WipeLimit == 0 {
		opts.WipeLimit = rate.Every(time.Minute)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Engine{
		books:       books,
		loans:       loans,
		records:     records,
		pageSize:    opts.PageSize,
		autoCascade: opts.AutoCascadeDelete,
		wipeLimiter: rate.NewLimiter(opts.WipeLimit, 1),
		clock:       opts.Clock,
	}
}

// HandleTurn processes one turn. Unexpected failures never escape: the
// session is cleared and a recovery prompt restarts the conversation, per
// the rule that a crash mid-flow must never strand the user in an
// unrecoverable waiting state.
func (e *Engine) HandleTurn(ctx context.Context, userID string, turn Turn) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("turn panicked for user %s intent %s: %v", userID, turn.Intent, r)
			resp = Response{
				Speech:   "Hubo un problema. Empecemos de nuevo. " + choose(whatToDo),
				Reprompt: choose(whatToDo),
				Session:  map[string]any{},
			}
		}
	}()

	sess := cloneSession(turn.Session)

	resp, err := e.dispatch(ctx, userID, turn, sess)
	if err != nil {
		log.Printf("turn failed for user %s intent %s: %v", userID, turn.Intent, err)
		return Response{
			Speech:   "Hubo un problema. Empecemos de nuevo. " + choose(whatToDo),
			Reprompt: choose(whatToDo),
			Session:  map[string]any{},
		}
	}
	return resp
}

func (e *Engine) dispatch(ctx context.Context, userID string, turn Turn, sess map[string]any) (Response, error) {
	// In-progress flows take precedence over plain intent dispatch.
	switch {
	case sessionBool(sess, sessAddingBook) && !isAddFlowControl(turn.Intent):
		return e.continueAdd(ctx, userID, turn, sess)
	case sessionString(sess, sessDeleteBookID) != "" && (turn.Intent == IntentYes || turn.Intent == IntentNo):
		return e.confirmDelete(ctx, userID, turn.Intent == IntentYes, sess)
	case sessionBool(sess, sessConfirmWipe) && (turn.Intent == IntentYes || turn.Intent == IntentNo):
		return e.confirmWipe(ctx, userID, turn.Intent == IntentYes, sess)
	}

	switch turn.Intent {
	case IntentLaunch:
		return e.handleLaunch(ctx, userID, sess)
	case IntentAddBook:
		return e.startAdd(ctx, userID, turn, sess)
	case IntentListBooks:
		return e.handleList(ctx, userID, turn, sess)
	case IntentNextPage:
		return e.handleNextPage(ctx, userID, sess)
	case IntentExitListing:
		return e.handleExitListing(sess)
	case IntentLoanBook:
		return e.handleLoan(ctx, userID, turn, sess)
	case IntentReturnBook:
		return e.handleReturn(ctx, userID, turn, sess)
	case IntentActiveLoans:
		return e.handleActiveLoans(ctx, userID, sess)
	case IntentReturnedLoans:
		return e.handleReturnedLoans(ctx, userID, sess)
	case IntentSearchBook:
		return e.handleSearch(ctx, userID, turn, sess)
	case IntentDeleteBook:
		return e.handleDelete(ctx, userID, turn, sess)
	case IntentStatistics:
		return e.handleStatistics(ctx, userID, sess)
	case IntentRefreshCache:
		return e.handleRefreshCache(ctx, userID, sess)
	case IntentWipeLibrary:
		return e.startWipe(sess)
	case IntentYes, IntentNo:
		return e.say(sess, "No hay nada pendiente de confirmar. "+choose(whatToDo), choose(whatToDo)), nil
	case IntentHelp, IntentShowOptions:
		return e.say(sess, choose(menuOptions)+" "+choose(whatToDo), choose(whatToDo)), nil
	case IntentCancel, IntentStop:
		return Response{
			Speech:     "¡Hasta pronto! Que disfrutes tu lectura.",
			Session:    map[string]any{},
			EndSession: true,
		}, nil
	case IntentSessionEnded:
		return Response{Session: map[string]any{}, EndSession: true}, nil
	default:
		return e.say(sess,
			"No estoy segura de haber entendido. "+choose(menuOptions),
			choose(whatToDo)), nil
	}
}

func (e *Engine) handleLaunch(ctx context.Context, userID string, sess map[string]any) (Response, error) {
	speech := choose(greetings) + " "

	// A reminder about loans about to expire makes the greeting useful.
	dueSoon, err := e.loans.LoansDueSoon(ctx, userID, 2)
	if err != nil {
		return Response{}, err
	}
	if len(dueSoon) == 1 {
		speech += "Recuerda que '" + dueSoon[0].Title + "' vence pronto. "
	} else if len(dueSoon) > 1 {
		speech += "Tienes " + strconv.Itoa(len(dueSoon)) + " préstamos por vencer. "
	}

	speech += choose(menuOptions) + " " + choose(whatToDo)
	return e.say(sess, speech, choose(whatToDo)), nil
}

// isAddFlowControl lists the intents that break out of the add-book flow
// instead of being treated as a free-text answer.
func isAddFlowControl(intent string) bool {
	switch intent {
	case IntentAddBook, IntentCancel, IntentStop:
		return true
	}
	return false
}

func (e *Engine) say(sess map[string]any, speech, reprompt string) Response {
	return Response{Speech: speech, Reprompt: reprompt, Session: sess}
}

func choose(phrases []string) string {
	return phrases[rand.IntN(len(phrases))]
}
