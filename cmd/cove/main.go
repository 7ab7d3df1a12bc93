package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"cove/internal/cove"
	"cove/internal/storage"
	"cove/internal/store"
)

// getenv returns the value of the environment variable named by key or
// fallback if the variable is not present.
func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func Run(ctx context.Context) error {

	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	dbPath := flag.String("db", "./cove.sqlite", "path to the SQLite database")
	storageEndpoint := flag.String("storage-endpoint", getenv("COVE_STORAGE_ENDPOINT", "localhost:9000"), "storage backend endpoint")
	storageRegion := flag.String("storage-region", getenv("COVE_STORAGE_REGION", "us-east-1"), "storage backend region")
	storageSecure := flag.Bool("storage-secure", false, "use TLS for the storage backend connection")

	flag.Parse()

	handler := log.NewWithOptions(os.Stdout, log.Options{
		Level:           log.DebugLevel,
		TimeFormat:      time.RFC3339,
		ReportTimestamp: true,
		TimeFunction:    log.NowUTC,
		ReportCaller:    true,
	})

	slog.SetDefault(slog.New(handler))

	st, err := store.Open(ctx, *dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	admin, err := storage.Dial(storage.Config{
		Endpoint:  *storageEndpoint,
		AccessKey: getenv("COVE_STORAGE_ACCESS_KEY", "minioadmin"),
		SecretKey: getenv("COVE_STORAGE_SECRET_KEY", "minioadmin"),
		Secure:    *storageSecure,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to storage backend: %w", err)
	}

	server, err := cove.NewServer(cove.NewConfig(
		cove.WithStore(st),
		cove.WithAdminClient(admin),
		cove.WithRegion(*storageRegion),
	))
	if err != nil {
		return fmt.Errorf("failed to create cove server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              *listenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 20 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		return httpServer.Shutdown(context.Background())
	})

	eg.Go(func() error {
		slog.Info("Starting Cove HTTP server", "addr", *listenAddr)
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	slog.Info("Cove Started")
	return eg.Wait()

}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx); err != nil {
		slog.Error("Cove exited with error", "error", err)
		os.Exit(1)
	}
}
