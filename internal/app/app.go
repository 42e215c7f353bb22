package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vancomm/percolation/internal/config"
	"github.com/vancomm/percolation/internal/database"
	"github.com/vancomm/percolation/internal/middleware"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	log        *logrus.Logger
	addr       string
	router     *http.ServeMux
	db         *pgxpool.Pool
	jwt        *config.JWT
	ws         *config.WebSocket
	limits     *config.Limits
	migrations fs.FS
}

func New(log *logrus.Logger, addr string, migrations fs.FS) *App {
	app := &App{
		log:        log,
		addr:       addr,
		router:     http.NewServeMux(),
		migrations: migrations,
	}
	return app
}

func (a *App) setup(ctx context.Context) error {
	db, migrator, err := database.ConnectAndMigrate(ctx, a.migrations)
	if err != nil {
		return fmt.Errorf("unable to connect to db: %w", err)
	}
	a.db = db
	if version, dirty, err := migrator.Version(); err == nil {
		a.log.WithFields(logrus.Fields{
			"version": version,
			"dirty":   dirty,
		}).Info("database migrated")
	}

	if a.jwt, err = config.NewJWT(); err != nil {
		return err
	}
	if a.jwt == nil {
		a.log.Warn("JWT_PUBLIC_KEY not set, authentication disabled")
	}

	if a.ws, err = config.NewWebSocket(); err != nil {
		return err
	}

	if a.limits, err = config.NewLimits(); err != nil {
		return err
	}

	a.loadRoutes()
	return nil
}

func (a *App) handler() http.Handler {
	return middleware.Wrap(
		a.router,
		middleware.Auth(a.log, a.jwt),
		middleware.Cors(),
		middleware.Logging(a.log),
	)
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *App) Start(ctx context.Context) error {
	if err := a.setup(ctx); err != nil {
		return err
	}
	defer a.db.Close()

	server := &http.Server{
		Addr:    a.addr,
		Handler: a.handler(),
		BaseContext: func(l net.Listener) context.Context {
			return ctx
		},
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infof("ready to serve @ %s", a.addr)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
