package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"tokwall/internal/tiktok"
	"tokwall/internal/wall"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [video URL ...]",
	Short: "Serve the wall as a live web page",
	Long: `Serve keeps the wall in memory and exposes it over HTTP. The page
re-renders on the configured interval; POST /api/refresh forces a pass.`,
	Args: cobra.ArbitraryArgs,
	RunE: serveRun,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", ":8080", "Listen address")
}

func serveRun(cmd *cobra.Command, args []string) error {
	videos := videoList(args)
	kept := tiktok.NormalizeVideoURLs(videos)
	if len(kept) == 0 {
		return fmt.Errorf("no TikTok video URLs to serve")
	}

	page, err := loadOrScaffold(cfg.Output, cfg.Title, cfg.Container)
	if err != nil {
		return err
	}
	if id, _ := wall.NormalizeID(cfg.Container); !page.HasElement(id) {
		return fmt.Errorf("no element with id %q in %s", id, cfg.Output)
	}

	ctrl := newController(page, nil)
	<-ctrl.Initialize(kept, cfg.Container, time.Duration(cfg.Interval))
	defer ctrl.Stop()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		out, err := page.HTML()
		if err != nil {
			http.Error(w, "rendering page failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, out)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Post("/api/refresh", func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-ctrl.Refresh():
			w.WriteHeader(http.StatusNoContent)
		case <-req.Context().Done():
			// Client went away; the pass finishes on its own.
		}
	})

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	fmt.Fprintf(os.Stderr, "Serving %d embeds on %s (interval %s)\n", len(kept), flagAddr, time.Duration(cfg.Interval))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-sig:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
