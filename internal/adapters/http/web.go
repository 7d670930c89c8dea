package web

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"time"

	"crm/internal/adapters/cache"
	"crm/internal/adapters/http/middleware"
	"crm/internal/adapters/http/perf"
	"crm/internal/adapters/realtime"
	"crm/internal/adapters/storage"
	accountStore "crm/internal/adapters/storage/account"
	auditStore "crm/internal/adapters/storage/audit"
	dealStore "crm/internal/adapters/storage/deal"
	instructorStore "crm/internal/adapters/storage/instructor"
	outboxStore "crm/internal/adapters/storage/outbox"
	studioStore "crm/internal/adapters/storage/studio"
	ticketStore "crm/internal/adapters/storage/ticket"
	turmaStore "crm/internal/adapters/storage/turma"
	"crm/internal/adapters/token"
	"crm/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore    accountStore.Store
	DealStore       dealStore.Store
	ClassStore      turmaStore.Store
	InstructorStore instructorStore.Store
	StudioStore     studioStore.Store
	TicketStore     ticketStore.Store
	AuditStore      auditStore.Store
	OutboxStore     outboxStore.Store
}

// NewStores builds the SQLite stores over one connection.
func NewStores(db storage.SQLDB) *Stores {
	return &Stores{
		AccountStore:    accountStore.NewSQLiteStore(db),
		DealStore:       dealStore.NewSQLiteStore(db),
		ClassStore:      turmaStore.NewSQLiteStore(db),
		InstructorStore: instructorStore.NewSQLiteStore(db),
		StudioStore:     studioStore.NewSQLiteStore(db),
		TicketStore:     ticketStore.NewSQLiteStore(db),
		AuditStore:      auditStore.NewSQLiteStore(db),
		OutboxStore:     outboxStore.NewSQLiteStore(db),
	}
}

// Options configures NewMux. Zero values give a working development server.
type Options struct {
	StaticDir          string        // served at /static/ when set
	CSRFKey            []byte        // 32 bytes; random when empty
	SecureCookies      bool          // production: cookies over HTTPS only
	TrustedOrigins     []string      // CSRF and websocket origins besides same-origin
	RateLimitPerSecond int           // 0 disables rate limiting
	SlowRequest        time.Duration // slow_request warning threshold
	BaseURL            string        // absolute links in notification emails
	DefaultRadiusKm    float64       // exclusive radius for studios registered without one
	DashboardTTL       time.Duration

	Cache  cache.Cache                    // nil uses an in-memory cache
	Tokens *token.Issuer                  // nil disables bearer tokens
	Hub    *realtime.Hub                  // nil disables live ticket updates
	Outbox *orchestrators.OutboxProcessor // nil disables admin retry/abandon
	Perf   *perf.Collector                // nil disables request timing
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// Global options (set by NewMux)
var settings Options

// timeNow is a variable for testability.
var timeNow = func() time.Time { return time.Now().UTC() }

// NewMux wires HTTP handlers for the app.
func NewMux(s *Stores, opts Options) http.Handler {
	stores = s
	sessions = middleware.NewSessionStore()
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache()
	}
	if len(opts.CSRFKey) == 0 {
		opts.CSRFKey = randomKey()
	}
	settings = opts

	mux := http.NewServeMux()
	if opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}
	registerRoutes(mux)

	var limiter *middleware.RateLimiter
	if opts.RateLimitPerSecond > 0 {
		limiter = middleware.NewRateLimiter(opts.RateLimitPerSecond, time.Second)
	}
	var tokens middleware.TokenParser
	if opts.Tokens != nil {
		tokens = opts.Tokens
	}

	// Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(middleware.CSRFConfig{
			Key:            opts.CSRFKey,
			Secure:         opts.SecureCookies,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.Auth(sessions, tokens, stores.AccountStore),
		middleware.RateLimit(limiter),
		middleware.Timing(opts.Perf, opts.SlowRequest),
	)
}

// randomKey generates a per-process CSRF key for development.
func randomKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	slog.Warn("config_event", "event", "random_csrf_key", "detail", "form sessions will not survive a restart")
	return key
}
