package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitchside/internal/domain"
	"github.com/pitchside/internal/session"
)

var flagWatchSchedule string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the session alive and prompt when it expires",
	Long: `Run the session monitor in the foreground. The session is refreshed
shortly before it expires; if it lapses anyway you are prompted to refresh it.`,
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

		unsubscribe := a.store.Subscribe(expiryPrompter(out))
		defer unsubscribe()

		monitor := session.NewMonitor(a.store,
			session.WithSchedule(flagWatchSchedule),
			session.WithMonitorLogger(a.logger),
		)
		if err := monitor.Start(ctx); err != nil {
			return fmt.Errorf("starting session monitor: %w", err)
		}
		defer monitor.Stop()

		fmt.Fprintln(out, renderStatus(a.store.Snapshot(), time.Now()))
		fmt.Fprintln(out, metaStyle.Render("Watching session (Ctrl+C to stop)..."))

		lines := readLines(ctx, cmd.InOrStdin())
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// stdin closed; keep watching until interrupted
					lines = nil
					continue
				}
				if strings.EqualFold(line, "q") {
					return nil
				}
				handleWatchInput(ctx, a.store, out)
			}
		}
	},
}

func init() {
	watchCmd.Flags().StringVar(&flagWatchSchedule, "schedule", session.DefaultMonitorSchedule, "monitor schedule (cron spec or @every duration)")
}

// expiryPrompter returns a store listener that shows the expired-session
// prompt once per expiry
func expiryPrompter(out io.Writer) func(session.State) {
	var mu sync.Mutex
	shown := false
	return func(st session.State) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case st.IsSessionExpired && !shown:
			shown = true
			fmt.Fprintln(out, renderExpiredPrompt())
		case !st.IsSessionExpired:
			shown = false
		}
	}
}

// handleWatchInput refreshes an expired session, or prints the status
func handleWatchInput(ctx context.Context, store *session.Store, out io.Writer) {
	if !store.Snapshot().IsSessionExpired {
		fmt.Fprintln(out, renderStatus(store.Snapshot(), time.Now()))
		return
	}
	if err := store.RefreshSession(ctx); err != nil {
		fmt.Fprintln(out, errorStyle.Render("Refresh failed: "+domain.PublicMessage(err)))
		return
	}
	fmt.Fprintln(out, successStyle.Render("Session refreshed, expires "+remaining(store.Snapshot().SessionExpiresAt, time.Now())))
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
