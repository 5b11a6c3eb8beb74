// cmd/assistant/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"shelfmate/internal/cache"
	"shelfmate/internal/dialog"
	"shelfmate/internal/library"
	"shelfmate/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Could not load .env file: %v", err)
	}

	store, cleanup, err := openStore()
	if err != nil {
		log.Fatalf("Failed to open record store: %v", err)
	}
	defer cleanup()

	c := cache.New()
	go func() {
		for range time.Tick(10 * time.Minute) {
			if n := c.CleanupExpired(); n > 0 {
				log.Printf("Evicted %d expired cache entries", n)
			}
		}
	}()

	records := library.NewRepository(store, c)
	books := library.NewBookRepository(records)
	loans := library.NewLoanRepository(records)

	bookSvc := library.NewBookService(books, loans, time.Now)
	loanSvc := library.NewLoanService(books, loans, records, time.Now)

	pageSize, _ := strconv.Atoi(getEnv("LIST_PAGE_SIZE", "10"))
	engine := dialog.NewEngine(bookSvc, loanSvc, records, dialog.Options{
		PageSize:          pageSize,
		AutoCascadeDelete: getEnv("AUTO_CASCADE_DELETE", "") == "true",
	})
	handler := dialog.NewHandler(engine)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Mount("/v1", handler.Routes())

	port := getEnv("PORT", "8080")
	fmt.Printf("🚀 Starting Assistant Service on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

// openStore picks the record store from the environment: Postgres when
// DATABASE_URL is set, SQLite when SQLITE_PATH is set, in-memory otherwise.
func openStore() (library.RecordStore, func(), error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			return nil, nil, err
		}
		store := storage.NewPostgresStore(db)
		if err := store.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Println("Using Postgres record store")
		return store, func() { db.Close() }, nil
	}

	if path := os.Getenv("SQLITE_PATH"); path != "" {
		store, err := storage.OpenSQLiteStore(path)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Using SQLite record store at %s", path)
		return store, func() { store.Close() }, nil
	}

	log.Println("Using in-memory record store; data will not survive restarts")
	return storage.NewMemoryStore(), func() {}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
