package apipaths

// Single API surface paths. Used by routes, the edge handler and the client.

const (
	News          = "/api/news"
	NewsFootball  = "/api/news/football"
	Health        = "/api/health"
	Me            = "/api/me"
	AuthProviders = "/api/auth/providers"
	AuthCallback  = "/auth/callback"
	AuthAuthorize = "/auth/authorize" // followed by /:provider
	OAuthPrefix   = "/oauth"
	Login         = "/login"
	VerifyEmail   = "/verify-email"
)
