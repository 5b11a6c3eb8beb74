// cmd/console/main.go
//
// Offline console for exercising the conversation engine without the HTTP
// layer. Useful for trying out dialog flows against a local SQLite file.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"shelfmate/internal/cache"
	"shelfmate/internal/dialog"
	"shelfmate/internal/library"
	"shelfmate/internal/storage"
)

var (
	dbPath string
	userID string
)

func main() {
	root := &cobra.Command{
		Use:   "console",
		Short: "Interact with the library assistant from the terminal",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "shelfmate.db", "path to the SQLite database, or :memory:")
	root.PersistentFlags().StringVar(&userID, "user", "console-user", "user whose library to operate on")

	root.AddCommand(replCommand(), turnCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildEngine() (*dialog.Engine, func(), error) {
	store, err := storage.OpenSQLiteStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	records := library.NewRepository(store, cache.New())
	books := library.NewBookRepository(records)
	loans := library.NewLoanRepository(records)

	engine := dialog.NewEngine(
		library.NewBookService(books, loans, time.Now),
		library.NewLoanService(books, loans, records, time.Now),
		records,
		dialog.Options{},
	)
	return engine, func() { store.Close() }, nil
}

// turnCommand sends a single intent and prints the JSON response. Session
// state can be piped in from a previous turn via --session.
func turnCommand() *cobra.Command {
	var (
		slotPairs []string
		sessJSON  string
	)
	cmd := &cobra.Command{
		Use:   "turn <intent>",
		Short: "Send one intent and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			slots := make(map[string]string)
			for _, pair := range slotPairs {
				k, v, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("slot %q is not key=value", pair)
				}
				slots[k] = v
			}

			session := map[string]any{}
			if sessJSON != "" {
				if err := json.Unmarshal([]byte(sessJSON), &session); err != nil {
					return fmt.Errorf("parsing session: %w", err)
				}
			}

			resp := engine.HandleTurn(context.Background(), userID, dialog.Turn{
				Intent:  args[0],
				Slots:   slots,
				Session: session,
			})

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&slotPairs, "slot", nil, "slot as key=value, repeatable")
	cmd.Flags().StringVar(&sessJSON, "session", "", "session JSON from a previous turn")
	return cmd
}

// replCommand runs an interactive loop. Plain text is sent as the free-form
// answer intent; lines starting with '/' name an intent directly, for example
// "/ListarLibrosIntent filtro_tipo=prestados".
func replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive conversation loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cleanup, err := buildEngine()
			if err != nil {
				return err
			}
			defer cleanup()

			session := map[string]any{}
			resp := engine.HandleTurn(context.Background(), userID, dialog.Turn{
				Intent:  dialog.IntentLaunch,
				Session: session,
			})
			fmt.Fprintln(cmd.OutOrStdout(), resp.Speech)
			session = resp.Session

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(cmd.OutOrStdout(), "\n> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/salir" || line == "/exit" {
					return nil
				}

				turn := parseLine(line)
				turn.Session = session
				resp = engine.HandleTurn(context.Background(), userID, turn)
				fmt.Fprintln(cmd.OutOrStdout(), resp.Speech)
				session = resp.Session
				if resp.EndSession {
					return nil
				}
			}
		},
	}
}

func parseLine(line string) dialog.Turn {
	if !strings.HasPrefix(line, "/") {
		return dialog.Turn{
			Intent: dialog.IntentAnswer,
			Slots:  map[string]string{"respuesta": line},
		}
	}

	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	turn := dialog.Turn{Intent: fields[0], Slots: map[string]string{}}
	for _, pair := range fields[1:] {
		if k, v, ok := strings.Cut(pair, "="); ok {
			turn.Slots[k] = strings.ReplaceAll(v, "_", " ")
		}
	}
	return turn
}
