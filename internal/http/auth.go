package http

import (
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"golang.org/x/oauth2"

	"github.com/pitchside/internal/apipaths"
	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/session"
)

const (
	codeVerifierCookie = "code_verifier"
	accessTokenCookie  = "access_token"
	codeVerifierMaxAge = 600 // seconds
)

// accessClaims are the claims the remote auth provider puts in access tokens
type accessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// authAuthorize starts a PKCE sign-in with the remote provider. The verifier
// is kept in a short-lived cookie until the callback consumes it.
func (s *Server) authAuthorize(c *gin.Context) {
	provider := c.Param("provider")
	if !slices.Contains(session.SupportedOAuthProviders, provider) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Unsupported provider", Details: provider})
		return
	}

	verifier := oauth2.GenerateVerifier()
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("redirect_to", s.config.PublicURL+apipaths.AuthCallback)
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(codeVerifierCookie, verifier, codeVerifierMaxAge, apipaths.AuthCallback, "", s.secureCookies(), true)
	c.Redirect(http.StatusFound, s.config.Auth.ProviderURL+"/authorize?"+q.Encode())
}

// authCallback exchanges the authorization code for a session and sends the
// browser on to the login, verify-email or home page
func (s *Server) authCallback(c *gin.Context) {
	ctx := c.Request.Context()
	origin := s.config.PublicURL

	code := c.Query("code")
	if code == "" {
		c.Redirect(http.StatusFound, origin+"/")
		return
	}

	verifier, _ := c.Cookie(codeVerifierCookie)
	c.SetCookie(codeVerifierCookie, "", -1, apipaths.AuthCallback, "", s.secureCookies(), true)

	client := s.newAuthClient()
	sess, err := client.ExchangeCodeWithVerifier(ctx, code, verifier)
	if err != nil {
		s.logger.WarnContext(ctx, "code exchange failed", "error", err)
		c.Redirect(http.StatusFound, origin+apipaths.Login+"?error="+url.QueryEscape(domain.PublicMessage(err)))
		return
	}

	s.setAccessTokenCookie(c, sess)

	if c.Query("type") == "email" {
		store := session.NewStore(client, nil, session.WithLogger(s.logger))
		defer store.Close()
		store.SetSession(sess)

		verified, err := store.VerifyEmail(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "email verification check failed", "error", err)
		} else {
			s.logger.InfoContext(ctx, "email verification checked", "verified", verified)
		}
		c.Redirect(http.StatusFound, origin+apipaths.VerifyEmail+"?verified=true")
		return
	}

	c.Redirect(http.StatusFound, origin+"/")
}

func (s *Server) setAccessTokenCookie(c *gin.Context, sess *session.Session) {
	maxAge := 0
	if sess.ExpiresAt > 0 {
		maxAge = int(time.Until(time.Unix(sess.ExpiresAt, 0)).Seconds())
		if maxAge <= 0 {
			return
		}
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(accessTokenCookie, sess.AccessToken, maxAge, "/", "", s.secureCookies(), true)
}

func (s *Server) secureCookies() bool {
	return strings.HasPrefix(s.config.PublicURL, "https://")
}

// getCurrentUser returns the identity behind a provider access token or a
// direct-OAuth cookie
func (s *Server) getCurrentUser(c *gin.Context) {
	if tok := extractToken(c.Request); tok != "" {
		claims, err := s.parseAccessToken(tok)
		if err == nil {
			c.JSON(http.StatusOK, gin.H{
				"id":     claims.Subject,
				"email":  claims.Email,
				"role":   claims.Role,
				"source": "provider",
			})
			return
		}
		s.logger.DebugContext(c.Request.Context(), "access token rejected", "error", err)
	}

	if user, ok := getOAuthUserFromContext(c); ok {
		c.JSON(http.StatusOK, gin.H{
			"id":      user.ID,
			"name":    user.Name,
			"email":   user.Email,
			"picture": user.Picture,
			"source":  "oauth",
		})
		return
	}

	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "Not authenticated",
		Details: "Please sign in to continue",
	})
}

// getAuthProviders lists the OAuth providers offered for sign-in
func (s *Server) getAuthProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": session.SupportedOAuthProviders})
}

// parseAccessToken validates an HS256 access token against the provider secret
func (s *Server) parseAccessToken(tokenStr string) (*accessClaims, error) {
	secret := s.config.Auth.JWTSecret
	if secret == "" {
		return nil, fmt.Errorf("provider JWT secret is not configured")
	}

	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// extractToken reads the access token from the Authorization header or the
// cookie set by the callback
func extractToken(req *http.Request) string {
	if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if cookie, err := req.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}
