package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jrsteele09/go-prayer-journal/auth"
	"github.com/jrsteele09/go-prayer-journal/events"
	"github.com/jrsteele09/go-prayer-journal/internal/callback"
	"github.com/jrsteele09/go-prayer-journal/internal/utils"
	"github.com/jrsteele09/go-prayer-journal/journal"
	"github.com/jrsteele09/go-prayer-journal/store"
	"github.com/spf13/cobra"
)

func newLoginCmd(configPath *string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log on through the identity provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			displayAppname(a.Config.GetAppName())
			listener, err := callback.New(a.Config.GetCallbackListenAddr(), a.Config.GetCallbackURL(), a.Auth)
			if err != nil {
				return err
			}
			if err := listener.Start(); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = listener.Shutdown(shutdownCtx)
			}()

			state := loginState{Command: cmd.CommandPath(), Started: time.Now()}
			sub := a.Auth.Subscribe(loginReporter(cmd.OutOrStdout(), state))
			defer sub.Unsubscribe()

			err = a.Auth.Login(state, func(u string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this address in your browser to log on:\n\n  %s\n\n", u)
			})
			if err != nil {
				return err
			}

			waitCtx, waitCancel := context.WithTimeout(ctx, timeout)
			defer waitCancel()
			return listener.Wait(waitCtx)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "how long to wait for the provider callback")
	return cmd
}

// loginState is handed to Login and comes back on the SessionChanged for that log on.
type loginState struct {
	Command string
	Started time.Time
}

// loginReporter prints who logged on, for the log on started with state only.
func loginReporter(w io.Writer, state loginState) events.Handler[auth.SessionChanged] {
	return func(e auth.SessionChanged) {
		if !e.LoggedIn {
			return
		}
		if got, ok := e.State.(loginState); !ok || !got.Started.Equal(state.Started) || got.Command != state.Command {
			return
		}
		_, _ = fmt.Fprintf(w, "logged on as %s\n", displayName(e.Profile))
	}
}

func newLogoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Auth.Logout(ctx, func(u string) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged off; to end the provider session too, open:\n\n  %s\n", u)
			})
		},
	}
}

func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged on",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			authenticated := a.Store.CheckAuthentication(ctx)
			if !authenticated {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "not logged on")
				return nil
			}
			session := a.Auth.Session()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged on as %s\nidentity expires %s\naccess expires %s\n",
				displayName(a.Store.State().User),
				session.ID.Expiry.Format(time.RFC3339),
				session.Access.Expiry.Format(time.RFC3339),
			)
			return nil
		},
	}
}

func newJournalCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "journal",
		Short: "List the active journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.LoadJournal(ctx, newProgress(cmd.ErrOrStderr())); err != nil {
				return err
			}
			printRequests(cmd.OutOrStdout(), a.Store.State().Journal)
			return nil
		},
	}
}

func newAddCmd(configPath *string) *cobra.Command {
	var recurType string
	var recurCount int
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Add a prayer request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := a.Store.AddRequest(ctx, newProgress(cmd.ErrOrStderr()), strings.Join(args, " "), journal.RecurType(recurType), recurCount)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", req.RequestID)
			return nil
		},
	}
	cmd.Flags().StringVar(&recurType, "recur-type", string(journal.RecurImmediate), "Immediate|Hours|Days|Weeks")
	cmd.Flags().IntVar(&recurCount, "recur-count", 0, "recurrence interval in recur-type units")
	return cmd
}

func newUpdateCmd(configPath *string) *cobra.Command {
	var status, text, recurType string
	var recurCount int
	cmd := &cobra.Command{
		Use:   "update <request-id>",
		Short: "Mark a request prayed, updated or answered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			progress := newProgress(cmd.ErrOrStderr())
			if err := a.Store.LoadJournal(ctx, progress); err != nil {
				return err
			}

			update := store.RequestUpdate{
				RequestID:  args[0],
				Status:     journal.Status(status),
				UpdateText: text,
				RecurType:  journal.RecurType(recurType),
				RecurCount: recurCount,
			}
			// Unset flags keep the journal's values.
			if existing, ok := a.Store.State().Find(args[0]); ok {
				if !cmd.Flags().Changed("recur-type") {
					update.RecurType = existing.RecurType
				}
				if !cmd.Flags().Changed("recur-count") {
					update.RecurCount = existing.RecurCount
				}
			}
			if err := a.Store.UpdateRequest(ctx, progress, update); err != nil {
				return err
			}
			if req, ok := a.Store.State().Find(args[0]); ok {
				printRequests(cmd.OutOrStdout(), []journal.Request{req})
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer in the journal\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(journal.StatusPrayed), "Prayed|Updated|Answered")
	cmd.Flags().StringVar(&text, "text", "", "new request text")
	cmd.Flags().StringVar(&recurType, "recur-type", "", "Immediate|Hours|Days|Weeks")
	cmd.Flags().IntVar(&recurCount, "recur-count", 0, "recurrence interval in recur-type units")
	return cmd
}

func newSnoozeCmd(configPath *string) *cobra.Command {
	var until string
	cmd := &cobra.Command{
		Use:   "snooze <request-id> --until <time>",
		Short: "Hide a request until a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(until, time.Now())
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.SnoozeRequest(ctx, newProgress(cmd.ErrOrStderr()), args[0], when); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s snoozed until %s\n", args[0], when.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&until, "until", "", "RFC 3339 time, YYYY-MM-DD, or a duration such as 72h")
	_ = cmd.MarkFlagRequired("until")
	return cmd
}

func newShowCmd(configPath *string) *cobra.Command {
	var after string
	cmd := &cobra.Command{
		Use:   "show <request-id>",
		Short: "Show a snoozed or recurring request again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseWhen(after, time.Now())
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.Store.ShowRequestNow(ctx, newProgress(cmd.ErrOrStderr()), args[0], when)
		},
	}
	cmd.Flags().StringVar(&after, "after", "", "when to show it (default now)")
	return cmd
}

func newAnsweredCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "answered",
		Short: "List answered requests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			reqs, err := a.Store.AnsweredRequests(ctx, newProgress(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			printRequests(cmd.OutOrStdout(), reqs)
			return nil
		},
	}
}

func newFullCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "full <request-id>",
		Short: "Show a request with its full history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			req, err := a.Store.FullRequest(ctx, newProgress(cmd.ErrOrStderr()), args[0])
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), *req)
			return nil
		},
	}
}

func newNotesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <request-id>",
		Short: "List the notes of a request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			notes, err := a.Store.Notes(ctx, newProgress(cmd.ErrOrStderr()), args[0])
			if err != nil {
				return err
			}
			if len(notes) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no notes")
				return nil
			}
			for _, n := range notes {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", formatMillis(n.AsOf), n.Notes)
			}
			return nil
		},
	}
}

func newNoteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "note <request-id> <text>",
		Short: "Add a note to a request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Store.AddNote(ctx, newProgress(cmd.ErrOrStderr()), args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "note added")
			return nil
		},
	}
}

// progress writes a marker while an action runs.
type progress struct {
	w io.Writer
}

func newProgress(w io.Writer) *progress {
	return &progress{w: w}
}

func (p *progress) Show(mode store.ProgressMode) {
	if mode == store.ProgressQuery {
		_, _ = fmt.Fprint(p.w, "loading... ")
		return
	}
	_, _ = fmt.Fprint(p.w, "working... ")
}

func (p *progress) Done() {
	_, _ = fmt.Fprintln(p.w)
}

// parseWhen accepts an RFC 3339 time, a date, or a duration from now. Empty means now.
func parseWhen(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, now.Location()); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(d), nil
	}
	return time.Time{}, fmt.Errorf("cannot read %q as a time, date or duration", value)
}

func displayName(user map[string]any) string {
	for _, claim := range []string{"name", "nickname", "email", "sub"} {
		if v, ok := user[claim].(string); ok && v != "" {
			return v
		}
	}
	return "unknown user"
}

func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return journal.FromMillis(ms).Local().Format("2006-01-02 15:04")
}

func printRequests(w io.Writer, reqs []journal.Request) {
	if len(reqs) == 0 {
		_, _ = fmt.Fprintln(w, "no requests")
		return
	}
	for _, r := range reqs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.RequestID, r.LastStatus, formatMillis(r.AsOf), r.Text)
	}
}

func printHistory(w io.Writer, r journal.Request) {
	_, _ = fmt.Fprintf(w, "%s\t%s\n", r.RequestID, r.Text)
	if r.RecurType != "" && r.RecurType != journal.RecurImmediate {
		_, _ = fmt.Fprintf(w, "recurs every %d %s\n", r.RecurCount, strings.ToLower(string(r.RecurType)))
	}
	for _, h := range r.History {
		_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\n", formatMillis(h.AsOf), h.Status, utils.Value(h.Text))
	}
}
