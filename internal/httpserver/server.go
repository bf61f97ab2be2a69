package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/orbitha/orbitha/internal/agents"
	"github.com/orbitha/orbitha/internal/ai"
	"github.com/orbitha/orbitha/internal/auth"
	"github.com/orbitha/orbitha/internal/blob"
	"github.com/orbitha/orbitha/internal/chat"
	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/internal/httpx"
	"github.com/orbitha/orbitha/internal/nutrition"
	"github.com/orbitha/orbitha/internal/profiles"
	"github.com/orbitha/orbitha/internal/ratelimit"
	"github.com/orbitha/orbitha/internal/storage"
	"github.com/orbitha/orbitha/internal/storage/memory"
	"github.com/orbitha/orbitha/internal/storage/postgres"
	"github.com/orbitha/orbitha/internal/storage/sqlite"
)

const shutdownTimeout = 15 * time.Second

// Dependencies are the collaborators New builds from configuration.
// Tests pass them directly to NewWithDependencies.
type Dependencies struct {
	Storage  storage.Store
	Blobs    blob.Store
	Provider ai.Provider
	// Now overrides the clock of the chat and nutrition services.
	Now func() time.Time
}

type Server struct {
	config  *config.Config
	logger  *zap.Logger
	router  chi.Router
	storage storage.Store
}

// New resolves storage, blob store and AI provider from cfg and wires the routes.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	store, err := initStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	blobs, _, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	return NewWithDependencies(cfg, logger, Dependencies{
		Storage:  store,
		Blobs:    blobs,
		Provider: ai.NewProvider(cfg.AI, logger),
	}), nil
}

// initStorage picks Postgres, then SQLite, then memory. A Postgres that cannot
// be reached falls back to memory so local runs keep working.
func initStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Store, error) {
	log := logger.With(zap.String("component", "storage"))

	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err == nil {
			log.Info("storage ready", zap.String("backend", "postgres"))
			return pg, nil
		}
		log.Warn("postgres unavailable, falling back to in-memory storage", zap.Error(err))
		return memory.New(), nil
	}

	if cfg.SQLitePath != "" {
		st, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		log.Info("storage ready", zap.String("backend", "sqlite"), zap.String("path", cfg.SQLitePath))
		return st, nil
	}

	log.Info("storage ready", zap.String("backend", "memory"))
	return memory.New(), nil
}

func NewWithDependencies(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:  cfg,
		logger:  logger,
		router:  chi.NewRouter(),
		storage: deps.Storage,
	}
	s.routes(deps)
	return s
}

func (s *Server) routes(deps Dependencies) {
	cfg := s.config
	store := deps.Storage

	authService := auth.NewService(cfg, store.Profiles(), s.logger)
	authMiddleware := auth.NewMiddleware(authService, s.logger)
	authHandler := auth.NewHandlers(authService)

	nutritionService := nutrition.NewService(store.Meals(), store.Profiles(), nutrition.LoadLocation(cfg.Chat.TimeZone))
	chatService := chat.NewService(store, nutritionService, deps.Provider, deps.Blobs, chat.Options{
		HistoryLimit:  cfg.Chat.HistoryLimit,
		MaxImageBytes: cfg.UploadMaxImageBytes,
		MaxTokens:     cfg.AI.MaxOutputTokens,
		Temperature:   cfg.AI.Temperature,
		PresignTTL:    time.Duration(cfg.Blob.S3.PresignTTLSeconds) * time.Second,
	}, s.logger)
	if deps.Now != nil {
		chatService.WithClock(deps.Now)
	}

	chatHandler := chat.NewHandler(chatService, ratelimit.PerMinute(cfg.DemoChatPerMinute, cfg.DemoChatBurst), s.logger)
	nutritionHandler := nutrition.NewHandler(nutritionService, s.logger)
	profileHandler := profiles.NewHandler(profiles.NewService(store.Profiles()), s.logger)
	agentHandler := agents.NewHandler(agents.NewService(store.Agents()), s.logger)

	r := s.router
	r.Use(middleware.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg))
	r.Use(ratelimit.PerSecond(cfg.RateLimitRPS, cfg.RateLimitBurst).Middleware)
	r.Use(authMiddleware.OptionalAuth)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/healthz", s.handleHealthz)
	r.Post("/v1/auth/dev", authHandler.HandleDevAuth)
	r.Get("/v1/agents/{slug}", agentHandler.HandleGet)
	r.Post("/v1/chat/demo", chatHandler.HandleDemo)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.RequireUser)

		r.Post("/v1/chat/fitness", chatHandler.HandleChat)

		r.Get("/v1/conversations", chatHandler.HandleListConversations)
		r.Post("/v1/conversations", chatHandler.HandleCreateConversation)
		r.Patch("/v1/conversations/{id}", chatHandler.HandleUpdateConversation)
		r.Delete("/v1/conversations/{id}", chatHandler.HandleDeleteConversation)
		r.Get("/v1/conversations/{id}/messages", chatHandler.HandleListMessages)
		r.Get("/v1/conversations/{id}/messages/{messageId}/photo", chatHandler.HandleMessagePhoto)

		r.Get("/v1/profile", profileHandler.HandleGet)
		r.Patch("/v1/profile", profileHandler.HandleUpdate)

		r.Get("/v1/nutrition/daily-summary", nutritionHandler.HandleDailySummary)
		r.Get("/v1/nutrition/meals", nutritionHandler.HandleListMeals)
		r.Get("/v1/nutrition/diary.pdf", nutritionHandler.HandleDiaryPDF)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start serves until ctx is cancelled, then drains in-flight requests.
// WriteTimeout stays zero because chat responses are long-lived streams.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Close() error {
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
