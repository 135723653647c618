package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pitchside/internal/news"
	"github.com/pitchside/internal/session"
)

const (
	expiredTitle   = "Session Expired"
	expiredMessage = "Your session has expired. Please refresh your session to continue."
)

func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

// remaining formats the time left until an epoch-millisecond instant
func remaining(expiresAtMs int64, now time.Time) string {
	if expiresAtMs == 0 {
		return "unknown"
	}
	d := time.UnixMilli(expiresAtMs).Sub(now).Truncate(time.Second)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func renderArticle(a news.Article, now time.Time, width int) string {
	if width < 20 {
		width = 80
	}
	lines := []string{
		titleStyle.Render(truncateStr(a.Title, width)),
		descriptionStyle.Render(truncateStr(a.Description, width)),
		metaStyle.Render(relativeTime(a.Published(), now)) + "  " + linkStyle.Render(a.URL),
	}
	return strings.Join(lines, "\n")
}

func renderArticles(articles []news.Article, now time.Time, width int) string {
	if len(articles) == 0 {
		return metaStyle.Render("No articles found")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Football news (%d)", len(articles))))
	for _, a := range articles {
		b.WriteString("\n\n")
		b.WriteString(renderArticle(a, now, width))
	}
	return b.String()
}

func statusRow(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func renderStatus(st session.State, now time.Time) string {
	if st.Session == nil {
		rows := []string{statusRow("Signed in", warnStyle.Render("no"))}
		if st.Error != "" {
			rows = append(rows, statusRow("Error", errorStyle.Render(st.Error)))
		}
		return panelStyle.Render(strings.Join(rows, "\n"))
	}

	email := "-"
	if st.User != nil && st.User.Email != "" {
		email = st.User.Email
	}
	verified := warnStyle.Render("no")
	if st.IsEmailVerified || st.User.IsVerified() {
		verified = successStyle.Render("yes")
	}
	expires := remaining(st.SessionExpiresAt, now)
	if st.IsSessionExpired {
		expires = errorStyle.Render("expired")
	}

	rows := []string{
		statusRow("Signed in", successStyle.Render("yes")),
		statusRow("Email", email),
		statusRow("Email verified", verified),
		statusRow("Session expires", expires),
		statusRow("Remember me", fmt.Sprintf("%t", st.RememberMe)),
	}
	if st.Error != "" {
		rows = append(rows, statusRow("Error", errorStyle.Render(st.Error)))
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func renderExpiredPrompt() string {
	body := errorStyle.Render(expiredTitle) + "\n" +
		descriptionStyle.Render(expiredMessage) + "\n" +
		metaStyle.Render("Press Enter to refresh, or type q to quit.")
	return promptBoxStyle.Render(body)
}

func renderProfile(u *session.User) string {
	if u == nil {
		return metaStyle.Render("No profile loaded")
	}
	value := func(key string) string {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			return v
		}
		return "-"
	}
	verified := warnStyle.Render("no")
	if u.IsVerified() {
		verified = successStyle.Render("yes")
	}
	rows := []string{
		statusRow("ID", u.ID),
		statusRow("Email", u.Email),
		statusRow("Email verified", verified),
		statusRow("Full name", value("full_name")),
		statusRow("Username", value("username")),
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}
