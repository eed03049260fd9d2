package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/masterypath/internal/api"
	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/cache"
	"github.com/abhisek/masterypath/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. When catalog.path is set the file is loaded and
published to the store before serving. With --memory, knowledge state is
kept in process and catalog.path is required.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("memory", false, "keep knowledge state in memory instead of the database")
	serveCmd.Flags().String("addr", "", "listen address (overrides http.addr)")
	serveCmd.Flags().String("catalog", "", "catalog file to publish on start (overrides catalog.path)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	memory, _ := cmd.Flags().GetBool("memory")
	addr := cfg.HTTP.Addr
	if a, _ := cmd.Flags().GetString("addr"); a != "" {
		addr = a
	}
	catalogPath := cfg.Catalog.Path
	if p, _ := cmd.Flags().GetString("catalog"); p != "" {
		catalogPath = p
	}

	var fileCat *bank.Catalog
	if catalogPath != "" {
		c, err := bank.LoadFile(catalogPath)
		if err != nil {
			return err
		}
		fileCat = c
	}

	var (
		repo  store.KnowledgeRepo
		cat   *bank.Catalog
		ready func(context.Context) error
	)
	if memory {
		if fileCat == nil {
			return errors.New("serve --memory needs a catalog file (--catalog or catalog.path)")
		}
		repo, cat = store.NewMemoryRepo(), fileCat
	} else {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		if fileCat != nil {
			if err := st.Catalog().Replace(ctx, fileCat); err != nil {
				return fmt.Errorf("publish catalog: %w", err)
			}
		}
		if cat, err = storedCatalog(ctx, st); err != nil {
			return err
		}
		repo = st.Knowledge()
		ready = func(ctx context.Context) error { return st.DB().PingContext(ctx) }
	}

	c, closeCache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()
	if r, ok := c.(*cache.Redis); ok {
		dbReady := ready
		ready = func(ctx context.Context) error {
			if dbReady != nil {
				if err := dbReady(ctx); err != nil {
					return err
				}
			}
			return r.HealthCheck(ctx)
		}
	}

	eng, err := newEngine(cat, repo, c)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: addr,
		Handler: api.NewRouter(api.Deps{
			Engine:         eng,
			Questions:      cat,
			Logger:         logger,
			CORSOrigins:    cfg.HTTP.CORSOrigins,
			RequestTimeout: cfg.HTTP.RequestTimeout,
			Ready:          ready,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		sections, objectives, questions := cat.Counts()
		logger.Info("server starting",
			"addr", addr,
			"memory", memory,
			"sections", sections,
			"objectives", objectives,
			"questions", questions,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
