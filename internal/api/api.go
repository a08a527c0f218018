package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/config"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/jwt"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type Ledger interface {
	Create(ctx context.Context, userID int64, amount decimal.Decimal, typ models.TransactionType, description *string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Transaction, error)
}

type Auth interface {
	Register(ctx context.Context, username, password string) (models.User, string, error)
	Login(ctx context.Context, username, password string) (models.User, string, error)
	User(ctx context.Context, id int64) (models.User, error)
	Authenticate(token string) (jwt.Session, error)
}

type APIServer struct {
	config *config.Config
	logger *slog.Logger
	server *http.Server
	ledger Ledger
	auth   Auth
}

func New(config *config.Config, logger *slog.Logger, ledger Ledger, auth Auth) *APIServer {
	return &APIServer{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:         config.ApiHost + ":" + strconv.Itoa(config.ApiPort),
			ReadTimeout:  config.HTTP.ReadTimeout,
			WriteTimeout: config.HTTP.WriteTimeout,
			IdleTimeout:  config.HTTP.IdleTimeout,
		},
		ledger: ledger,
		auth:   auth,
	}
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting server", slog.String("port", strconv.Itoa(s.config.ApiPort)))

	s.server.Handler = s.Handler()

	return s.server.ListenAndServe()
}

func (s *APIServer) MustStart() {
	err := s.Start()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic("Failed to start server: " + err.Error())
	}
}

func (s *APIServer) Stop(ctx context.Context) error {
	defer s.logger.Info("Server successfully stopped")
	return s.server.Shutdown(ctx)
}

// Handler builds the routed handler with the full middleware chain.
func (s *APIServer) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.healthHandler()).Methods(http.MethodGet)
	router.HandleFunc("/api/register", s.registerHandler()).Methods(http.MethodPost)
	router.HandleFunc("/api/login", s.loginHandler()).Methods(http.MethodPost)
	router.HandleFunc("/api/user", s.authenticate(s.userHandler())).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions", s.authenticate(s.listTransactionsHandler())).Methods(http.MethodGet)
	router.HandleFunc("/api/transactions", s.authenticate(s.createTransactionHandler())).Methods(http.MethodPost)
	router.HandleFunc("/api/transactions/summary", s.authenticate(s.summaryHandler())).Methods(http.MethodGet)
	router.Use(s.requestID, s.logRequests)

	var h http.Handler = router
	if len(s.config.HTTP.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(s.config.HTTP.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
			handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
			handlers.AllowCredentials(),
		)(h)
	}

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)(h)
}

// requestContext bounds storage work done on behalf of r.
func (s *APIServer) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.config.HTTP.RequestTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.config.HTTP.RequestTimeout)
}

func (s *APIServer) healthHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}
