package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitchside/internal/session"
)

const passwordEnv = "PITCHSIDE_PASSWORD"

var (
	flagEmail          string
	flagPassword       string
	flagRemember       bool
	flagFullName       string
	flagUsername       string
	flagVerifyInterval time.Duration
	flagVerifyOnce     bool
	flagOpenBrowser    bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with email and password",
	Long: `Sign in with email and password. The password is prompted for unless
--password or ` + passwordEnv + ` is set.

With --remember the email is saved and offered the next time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		p := newPrompter(cmd.InOrStdin(), out)

		email := flagEmail
		if email == "" {
			if email, err = p.lineDefault("Email", a.store.RememberedEmail(ctx)); err != nil {
				return err
			}
		}
		password, err := passwordFrom(p, "Password")
		if err != nil {
			return err
		}
		if email == "" || password == "" {
			return errors.New("email and password are required")
		}

		if err := a.store.Login(ctx, email, password, flagRemember); err != nil {
			return userError(err)
		}
		if err := a.store.SetRememberedEmail(ctx, email, flagRemember); err != nil {
			a.logger.Warn("failed to save remembered email", "error", err)
		}

		st := a.store.Snapshot()
		fmt.Fprintln(out, successStyle.Render("Signed in as "+email))
		if !st.User.IsVerified() {
			fmt.Fprintln(out, warnStyle.Render("Your email address is not verified yet. Run `pitchside verify` once you have followed the link."))
		}
		return nil
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		p := newPrompter(cmd.InOrStdin(), out)

		email := flagEmail
		if email == "" {
			if email, err = p.line("Email"); err != nil {
				return err
			}
		}
		password, err := passwordFrom(p, "Password")
		if err != nil {
			return err
		}
		if email == "" || password == "" {
			return errors.New("email and password are required")
		}

		if err := a.store.SignUp(ctx, email, password, profileMetadata()); err != nil {
			return userError(err)
		}

		st := a.store.Snapshot()
		if st.Session != nil {
			fmt.Fprintln(out, successStyle.Render("Account created. Signed in as "+email))
			return nil
		}
		fmt.Fprintln(out, successStyle.Render("Account created."))
		fmt.Fprintln(out, "We sent a confirmation link to "+email+". Follow it, then run `pitchside login`.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Logout(cmd.Context()); err != nil {
			return userError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.restoreSession(cmd.Context()); err != nil {
			a.logger.Warn("failed to restore session", "error", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderStatus(a.store.Snapshot(), time.Now()))
		return nil
	},
}

func checkInterval(flag string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("--%s must be positive, got %s", flag, d)
	}
	return nil
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Wait until your email address is confirmed",
	Long: `Check whether the signed-in user's email address has been confirmed,
polling until it is (or once with --once).`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return checkInterval("interval", flagVerifyInterval)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if err := a.requireSession(ctx); err != nil {
			return err
		}

		ticker := time.NewTicker(flagVerifyInterval)
		defer ticker.Stop()
		announced := false

		for {
			res, err := a.store.CheckEmailVerification(ctx)
			if err != nil {
				return userError(err)
			}
			if res.IsVerified {
				fmt.Fprintln(out, successStyle.Render("Email verified."))
				return nil
			}
			if flagVerifyOnce {
				fmt.Fprintln(out, warnStyle.Render("Email not verified yet."))
				return nil
			}
			if !announced {
				fmt.Fprintln(out, "Waiting for you to follow the confirmation link (Ctrl+C to stop)...")
				announced = true
			}

			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Send the confirmation email again",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if err := a.restoreSession(ctx); err != nil {
			a.logger.Warn("failed to restore session", "error", err)
		}

		// Unconfirmed accounts usually cannot sign in, so allow naming the address.
		if a.store.Snapshot().User == nil && flagEmail != "" {
			if err := a.auth.Resend(ctx, "signup", flagEmail, a.cfg.CallbackURL); err != nil {
				return userError(err)
			}
			fmt.Fprintln(out, successStyle.Render("Confirmation email sent to "+flagEmail))
			return nil
		}

		res := a.store.ResendVerificationEmail(ctx)
		if !res.Success {
			return errors.New(res.Error)
		}
		fmt.Fprintln(out, successStyle.Render("Confirmation email sent."))
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Email a password recovery link",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())

		email := flagEmail
		if email == "" {
			if email, err = p.lineDefault("Email", a.store.RememberedEmail(ctx)); err != nil {
				return err
			}
		}
		if email == "" {
			return errors.New("email is required")
		}

		if err := a.store.ResetPassword(ctx, email); err != nil {
			return userError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("If an account exists for "+email+", a recovery link is on its way."))
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show or update your profile",
	Long: `Without flags, print the signed-in user's profile. --full-name and
--username update profile data; --email and --password change credentials.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if err := a.requireSession(ctx); err != nil {
			return err
		}

		update := session.UserUpdate{
			Email:    flagEmail,
			Password: flagPassword,
			Data:     profileMetadata(),
		}
		if update.Email != "" || update.Password != "" || update.Data != nil {
			if err := a.store.UpdateProfile(ctx, update); err != nil {
				return userError(err)
			}
			fmt.Fprintln(out, successStyle.Render("Profile updated."))
		}

		fmt.Fprintln(out, renderProfile(a.store.Snapshot().User))
		return nil
	},
}

var oauthURLCmd = &cobra.Command{
	Use:       "oauth-url <provider>",
	Short:     "Print the sign-in URL for an OAuth provider",
	Long:      "Print (or open with --open) the URL that starts an OAuth sign-in. Supported providers: " + strings.Join(session.SupportedOAuthProviders, ", ") + ".",
	Args:      cobra.ExactArgs(1),
	ValidArgs: session.SupportedOAuthProviders,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := strings.ToLower(args[0])
		if !slices.Contains(session.SupportedOAuthProviders, provider) {
			return fmt.Errorf("unsupported provider %q (supported: %s)", provider, strings.Join(session.SupportedOAuthProviders, ", "))
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.store.OAuthSignInURL(cmd.Context(), provider, "")
		if err != nil {
			return userError(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), u)
		if flagOpenBrowser {
			if err := openBrowser(u); err != nil {
				return fmt.Errorf("opening browser: %w", err)
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), metaStyle.Render("After signing in, run `pitchside exchange <code>` with the code from the callback URL."))
		return nil
	},
}

var exchangeCmd = &cobra.Command{
	Use:   "exchange <code>",
	Short: "Complete an OAuth or email-link sign-in with its code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if err := a.store.ExchangeCode(ctx, args[0]); err != nil {
			return userError(err)
		}
		// The exchange response may omit the user
		if a.store.Snapshot().User == nil {
			if err := a.store.CheckAuth(ctx); err != nil {
				a.logger.Warn("failed to load user after exchange", "error", err)
			}
		}

		email := "-"
		if u := a.store.Snapshot().User; u != nil && u.Email != "" {
			email = u.Email
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Signed in as "+email))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "account password (prefer the prompt or "+passwordEnv+")")
	loginCmd.Flags().BoolVar(&flagRemember, "remember", false, "remember the email for next time")

	signupCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	signupCmd.Flags().StringVar(&flagPassword, "password", "", "account password (prefer the prompt or "+passwordEnv+")")
	signupCmd.Flags().StringVar(&flagFullName, "full-name", "", "display name")
	signupCmd.Flags().StringVar(&flagUsername, "username", "", "username")

	verifyCmd.Flags().DurationVar(&flagVerifyInterval, "interval", 5*time.Second, "how often to check")
	verifyCmd.Flags().BoolVar(&flagVerifyOnce, "once", false, "check once and exit")

	resendCmd.Flags().StringVar(&flagEmail, "email", "", "address to send to when not signed in")
	resetPasswordCmd.Flags().StringVar(&flagEmail, "email", "", "account email")

	profileCmd.Flags().StringVar(&flagFullName, "full-name", "", "new display name")
	profileCmd.Flags().StringVar(&flagUsername, "username", "", "new username")
	profileCmd.Flags().StringVar(&flagEmail, "email", "", "new email address")
	profileCmd.Flags().StringVar(&flagPassword, "password", "", "new password")

	oauthURLCmd.Flags().BoolVar(&flagOpenBrowser, "open", false, "open the URL in a browser")
}

// passwordFrom returns --password, then $PITCHSIDE_PASSWORD, then prompts
func passwordFrom(p *prompter, label string) (string, error) {
	if flagPassword != "" {
		return flagPassword, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	return p.password(label)
}

// profileMetadata collects the profile data flags, or nil when none is set
func profileMetadata() map[string]any {
	data := map[string]any{}
	if flagFullName != "" {
		data["full_name"] = flagFullName
	}
	if flagUsername != "" {
		data["username"] = flagUsername
	}
	if len(data) == 0 {
		return nil
	}
	return data
}
