package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/IlyasAtabaev731/barter-market/internal/config"
	"github.com/IlyasAtabaev731/barter-market/internal/market"
	"github.com/IlyasAtabaev731/barter-market/internal/metrics"
	"github.com/gorilla/mux"
)

const healthTimeout = 2 * time.Second

// Storage is a market backend that can report its health.
type Storage interface {
	market.Store
	Ping(ctx context.Context) error
}

type APIServer struct {
	config    *config.Config
	logger    *slog.Logger
	server    *http.Server
	storage   Storage
	catalog   *market.Catalog
	ledger    *market.Ledger
	community *market.Community
	pages     *renderer
	limiter   *rateLimiter
}

func New(config *config.Config, logger *slog.Logger, storage Storage) *APIServer {
	ledger := market.NewLedger(logger, storage, storage)
	catalog := market.NewCatalog(logger, storage, storage, ledger)

	return &APIServer{
		config: config,
		logger: logger,
		server: &http.Server{
			Addr:              config.ApiHost + ":" + strconv.Itoa(config.ApiPort),
			ReadHeaderTimeout: 10 * time.Second,
		},
		storage:   storage,
		catalog:   catalog,
		ledger:    ledger,
		community: market.NewCommunity(logger, storage, catalog),
		pages:     mustRenderer(),
		limiter:   newRateLimiter(config.RateLimit.RPS, config.RateLimit.Burst, logger),
	}
}

func (s *APIServer) Start() error {
	s.logger.Info("Starting server", slog.String("port", strconv.Itoa(s.config.ApiPort)))

	s.configureRouter()

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

func (s *APIServer) configureRouter() {
	router := mux.NewRouter()

	router.HandleFunc("/", s.feedHandler()).Methods("GET")
	router.HandleFunc("/signup", s.signupPageHandler()).Methods("GET")
	router.HandleFunc("/signup", s.limiter.limit(s.signupHandler())).Methods("POST")
	router.HandleFunc("/login", s.loginPageHandler()).Methods("GET")
	router.HandleFunc("/login", s.limiter.limit(s.loginHandler())).Methods("POST")
	router.HandleFunc("/logout", s.logoutHandler()).Methods("GET")

	router.HandleFunc("/item/{id}", s.authenticate(s.itemHandler())).Methods("GET")
	router.HandleFunc("/add", s.authenticate(s.addItemPageHandler())).Methods("GET")
	router.HandleFunc("/add", s.authenticate(s.addItemHandler())).Methods("POST")
	router.HandleFunc("/edit/{id}", s.authenticate(s.editItemPageHandler())).Methods("GET")
	router.HandleFunc("/update/{id}", s.authenticate(s.updateItemHandler())).Methods("POST")
	router.HandleFunc("/delete/{id}", s.authenticate(s.deleteItemHandler())).Methods("POST")
	router.HandleFunc("/setpublic/{id}", s.authenticate(s.visibilityHandler(true))).Methods("POST")
	router.HandleFunc("/setprivate/{id}", s.authenticate(s.visibilityHandler(false))).Methods("POST")
	router.HandleFunc("/viewListings", s.authenticate(s.listingsHandler())).Methods("GET")

	router.HandleFunc("/offer/{id}", s.authenticate(s.offerPageHandler())).Methods("GET")
	router.HandleFunc("/newoffer/{id}", s.authenticate(s.newOfferHandler())).Methods("POST")
	router.HandleFunc("/sentoffers", s.authenticate(s.sentOffersHandler())).Methods("GET")
	router.HandleFunc("/receivedoffers", s.authenticate(s.receivedOffersHandler())).Methods("GET")
	router.HandleFunc("/acceptoffer/{id}", s.authenticate(s.acceptOfferHandler())).Methods("POST")
	router.HandleFunc("/rejectoffer/{id}", s.authenticate(s.rejectOfferHandler())).Methods("POST")
	router.HandleFunc("/deleteoffer/{id}", s.authenticate(s.deleteOfferHandler())).Methods("POST")

	router.HandleFunc("/profile", s.authenticate(s.profileHandler())).Methods("GET")
	router.HandleFunc("/editProfile", s.authenticate(s.editProfilePageHandler())).Methods("GET")
	router.HandleFunc("/editProfile", s.authenticate(s.editProfileHandler())).Methods("POST")
	router.HandleFunc("/viewUser/{username}", s.authenticate(s.viewUserHandler())).Methods("GET")
	router.HandleFunc("/addFriend/{username}", s.authenticate(s.addFriendHandler())).Methods("POST")
	router.HandleFunc("/friends", s.authenticate(s.friendsHandler())).Methods("GET")

	router.HandleFunc("/healthz", s.healthHandler()).Methods("GET")
	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, http.StatusNotFound, "Page not found")
	})

	s.server.Handler = metrics.InstrumentHandler(s.logRequests(router))
}

func (s *APIServer) healthHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.storage.Ping(ctx); err != nil {
			s.logger.Error("Health check failed", "error", err)
			http.Error(w, "storage unavailable", http.StatusServiceUnavailable)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func (s *APIServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		s.logger.Debug("Request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.Status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}
