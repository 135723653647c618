package session

import (
	"context"
	"time"
)

// Session is the token bundle issued by the remote auth service
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"` // epoch seconds
	User         *User  `json:"user,omitempty"`
}

// ExpiresAtMillis returns the expiration instant in epoch milliseconds, or 0
// when the provider did not report one.
func (s *Session) ExpiresAtMillis() int64 {
	if s == nil || s.ExpiresAt == 0 {
		return 0
	}
	return s.ExpiresAt * 1000
}

// User is the profile record mirrored from the remote auth service
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	CreatedAt        *time.Time     `json:"created_at,omitempty"`
	UpdatedAt        *time.Time     `json:"updated_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
}

// IsVerified reports whether the provider recorded an email confirmation
func (u *User) IsVerified() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// UserUpdate carries profile changes; empty fields are left untouched
type UserUpdate struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUpRequest carries sign-up details
type SignUpRequest struct {
	Email           string
	Password        string
	Data            map[string]any
	EmailRedirectTo string
}

// Provider is the remote auth service as seen by the store. Implementations
// hold the current session the way an SDK client does.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, req SignUpRequest) (*User, *Session, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*Session, error)
	GetUser(ctx context.Context) (*User, error)
	RefreshSession(ctx context.Context) (*Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdateUser(ctx context.Context, update UserUpdate) (*User, error)
	Resend(ctx context.Context, kind, email, redirectTo string) error
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)
	AuthorizeURL(ctx context.Context, provider, redirectTo string) (string, error)
}

// KeyValue is client-durable storage with no expiry
type KeyValue interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Durable storage keys
const (
	KeyRememberMe      = "rememberMe"
	KeyRememberedEmail = "rememberedEmail"
	KeySession         = "auth.session"
	KeyCodeVerifier    = "auth.code_verifier"
)
