package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pkgz/auth"
	"github.com/go-pkgz/auth/avatar"
	"github.com/go-pkgz/auth/token"
	"github.com/google/uuid"

	"github.com/pitchside/internal/apipaths"
	"github.com/pitchside/internal/authprovider"
	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/newsapi"
	"github.com/pitchside/internal/system"
)

// Server wraps the HTTP server
type Server struct {
	config      *config.Config
	engine      *gin.Engine
	news        *newsapi.Client
	authService *auth.Service
	stats       *system.Collector
	logger      *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	switch cfg.Environment {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	if logger == nil {
		logger = slog.Default()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	// Middleware - order matters
	engine.Use(requestIDMiddleware())
	engine.Use(securityHeadersMiddleware())
	engine.Use(corsMiddleware(cfg))
	engine.Use(cacheControlMiddleware())
	engine.Use(loggerMiddleware(logger))
	engine.Use(jsonBodyLimitMiddleware(maxBodySize))

	engine.MaxMultipartMemory = maxBodySize

	var authService *auth.Service
	if cfg.OAuth.Enabled {
		authService = initAuthService(cfg)
	}

	server := &Server{
		config:      cfg,
		engine:      engine,
		news:        newsapi.NewClient(cfg.News.BaseURL),
		authService: authService,
		stats:       system.NewCollector(time.Now(), "", logger),
		logger:      logger,
	}

	server.setupRoutes()

	return server
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// newAuthClient returns a remote auth client scoped to one request
func (s *Server) newAuthClient() *authprovider.Client {
	return authprovider.NewClient(s.config.Auth.ProviderURL, s.config.Auth.AnonKey,
		authprovider.WithLogger(s.logger))
}

// initAuthService initializes go-pkgz/auth for direct OAuth sign-in
func initAuthService(cfg *config.Config) *auth.Service {
	// URL must include the mount prefix so provider callbacks resolve
	opts := auth.Opts{
		SecretReader: token.SecretFunc(func(id string) (string, error) {
			return cfg.OAuth.JWTSecret, nil
		}),
		TokenDuration:  time.Hour,
		CookieDuration: time.Hour * 24 * 7,
		Issuer:         "pitchside",
		URL:            cfg.PublicURL + apipaths.OAuthPrefix,
		AvatarStore:    avatar.NewNoOp(),
		SecureCookies:  cfg.OAuth.SecureCookie,
		DisableXSRF:    true,
		Validator: token.ValidatorFunc(func(_ string, claims token.Claims) bool {
			if claims.User == nil {
				slog.Warn("JWT validation failed: no user in claims")
				return false
			}
			return true
		}),
	}

	authService := auth.NewService(opts)

	providers := []struct {
		name   string
		client config.OAuthClient
	}{
		{"github", cfg.OAuth.GitHub},
		{"google", cfg.OAuth.Google},
		{"facebook", cfg.OAuth.Facebook},
		{"twitter", cfg.OAuth.Twitter},
	}
	for _, p := range providers {
		if !p.client.Configured() {
			continue
		}
		authService.AddProvider(p.name, p.client.ClientID, p.client.ClientSecret)
		slog.Info("OAuth provider enabled", "provider", p.name)
	}

	return authService
}

const (
	maxBodySize  = 1 << 20 // 1MB max request body
	readTimeout  = 30 * time.Second
	writeTimeout = 60 * time.Second
	idleTimeout  = 120 * time.Second

	shutdownTimeout = 30 * time.Second
)

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	addr := s.config.ServerAddress
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:           addr,
		Handler:        s.engine,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// requestIDMiddleware tags every request with an X-Request-ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// securityHeadersMiddleware adds security-related HTTP headers
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		// HSTS (only if using HTTPS)
		if c.Request.TLS != nil {
			c.Writer.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// corsMiddleware adds CORS headers with configurable origin
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.CORS.AllowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// cacheControlMiddleware disables caching for dynamic and auth responses
func cacheControlMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path

		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/auth/") || strings.HasPrefix(path, apipaths.OAuthPrefix+"/") {
			c.Writer.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
			c.Writer.Header().Set("Pragma", "no-cache")
			c.Writer.Header().Set("Expires", "0")
		}

		c.Next()
	}
}

// jsonBodyLimitMiddleware limits the size of JSON request bodies
func jsonBodyLimitMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodDelete && c.Request.Method != http.MethodOptions {
			if strings.Contains(c.GetHeader("Content-Type"), "application/json") {
				if c.Request.ContentLength > maxBytes {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
						Error: "Request body too large",
					})
					return
				}
				c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
			}
		}
		c.Next()
	}
}

// loggerMiddleware logs HTTP requests once they complete
func loggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.InfoContext(c.Request.Context(), "HTTP request",
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"remote_addr", c.ClientIP(),
		)
	}
}

// optionalOAuthUser populates the direct-OAuth user when a valid cookie is
// present and never rejects the request
func (s *Server) optionalOAuthUser() gin.HandlerFunc {
	if s.authService == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	authMiddleware := s.authService.Middleware()

	return func(c *gin.Context) {
		handler := authMiddleware.Trace(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u, err := token.GetUserInfo(r); err == nil {
				c.Set("oauth_user", u)
			}
			c.Request = r
		}))
		handler.ServeHTTP(c.Writer, c.Request)
		c.Next()
	}
}

// getOAuthUserFromContext extracts the direct-OAuth user from context
func getOAuthUserFromContext(c *gin.Context) (token.User, bool) {
	if user, exists := c.Get("oauth_user"); exists {
		if u, ok := user.(token.User); ok {
			return u, true
		}
	}
	return token.User{}, false
}

// wrapAuthHandler wraps an http.Handler for use with Gin, stripping the prefix
// go-pkgz/auth expects paths relative to where it's mounted
func wrapAuthHandler(handler http.Handler, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalPath := c.Request.URL.Path
		c.Request.URL.Path = strings.TrimPrefix(originalPath, prefix)

		handler.ServeHTTP(c.Writer, c.Request)

		c.Request.URL.Path = originalPath
	}
}
