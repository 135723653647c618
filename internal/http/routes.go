package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchside/internal/apipaths"
)

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Direct OAuth sign-in; go-pkgz/auth expects paths relative to the mount point
	if s.authService != nil {
		authHandler, avatarHandler := s.authService.Handlers()
		s.engine.Any(apipaths.OAuthPrefix+"/*path", wrapAuthHandler(authHandler, apipaths.OAuthPrefix))
		s.engine.Any("/avatar/*path", wrapAuthHandler(avatarHandler, "/avatar"))
	}

	s.engine.GET(apipaths.Health, s.getHealth)

	// News proxy
	s.engine.GET(apipaths.NewsFootball, s.getNews)
	s.engine.GET(apipaths.News, s.getNews)

	// Remote auth provider flow
	s.engine.GET(apipaths.AuthCallback, s.authCallback)
	s.engine.GET(apipaths.AuthAuthorize+"/:provider", s.authAuthorize)

	s.engine.GET(apipaths.Me, s.optionalOAuthUser(), s.getCurrentUser)
	s.engine.GET(apipaths.AuthProviders, s.getAuthProviders)

	s.engine.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not found")
	})
}
