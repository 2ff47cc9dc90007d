package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jwrfree/lemon-beta/internal/auth"
	"github.com/jwrfree/lemon-beta/internal/config"
	"github.com/jwrfree/lemon-beta/internal/logger"
	"github.com/jwrfree/lemon-beta/internal/metrics"
	"github.com/jwrfree/lemon-beta/internal/rpc"
	"github.com/jwrfree/lemon-beta/internal/service"
	"github.com/jwrfree/lemon-beta/internal/store"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Connect RPC server",
	Long: `Start the InsightService server. Storage and auth follow the config
file and the PORT, ENV, USE_MEMORY_STORE, SQLITE_PATH, SKIP_AUTH and
GOOGLE_CLOUD_PROJECT environment variables.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{Level: cfg.Server.LogLevel, Pretty: cfg.Server.PrettyLogs || cfg.IsLocal()})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storeImpl, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	interceptors, err := buildInterceptors(ctx, cfg, log)
	if err != nil {
		return err
	}

	svc := service.NewInsightService(storeImpl, cfg.Analytics, log)
	rpcPath, rpcHandler := rpc.NewInsightServiceHandler(svc, connect.WithInterceptors(interceptors...))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           h2c.NewHandler(newRouter(rpcPath, rpcHandler, cfg.Server.AllowedOrigins, log), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("store", cfg.Store.Backend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

// openStore selects the storage backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		log.Info().Msg("using in-memory store for local development")
		return store.NewMemoryStore(), func() error { return nil }, nil

	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("using sqlite store")
		return s, s.Close, nil

	default:
		client, err := firestore.NewClient(ctx, cfg.Store.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Firestore client: %w", err)
		}
		log.Info().Str("project", cfg.Store.ProjectID).Msg("using firestore store")
		return store.NewFirestoreStore(client), client.Close, nil
	}
}

// buildInterceptors orders the interceptor chain: metrics outermost, then
// debug impersonation, then either Firebase token checks or the fixed local
// user.
func buildInterceptors(ctx context.Context, cfg config.Config, log zerolog.Logger) ([]connect.Interceptor, error) {
	interceptors := []connect.Interceptor{
		metrics.Interceptor(),
		auth.DebugAuthInterceptor(cfg.Auth.SkipAuth),
	}

	if cfg.Store.Backend != config.BackendFirestore || cfg.Auth.SkipAuth {
		log.Warn().Str("user", cfg.Auth.LocalUserID).Msg("using mock authentication")
		return append(interceptors, auth.LocalDevInterceptor(cfg.Auth.LocalUserID)), nil
	}

	firebaseAuth, err := auth.NewFirebaseAuth(ctx, cfg.Store.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}
	return append(interceptors, auth.AuthInterceptor(firebaseAuth)), nil
}

// newRouter mounts the RPC handler next to /health and /metrics behind CORS.
func newRouter(rpcPath string, rpcHandler http.Handler, allowedOrigins []string, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Handle(rpcPath+"*", rpcHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Accept-Language",
			"Authorization",
			"Connect-Protocol-Version",
			"Connect-Timeout-Ms",
			"Content-Type",
			"Grpc-Timeout",
			"User-Agent",
			"X-Grpc-Web",
			"X-User-Agent",
			"X-Debug-Impersonate-User",
		},
		ExposedHeaders: []string{
			"Grpc-Status",
			"Grpc-Message",
			"Grpc-Status-Details-Bin",
		},
		AllowCredentials: true,
	})
	return c.Handler(r)
}

// requestLogger attaches a request-scoped logger to the context and logs
// each request once it completes.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLog := log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), reqLog)))

			reqLog.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}
