package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/j-veylop/stockscanner-tui/internal/api"
	"github.com/j-veylop/stockscanner-tui/internal/models"
	"github.com/j-veylop/stockscanner-tui/internal/services"
	"github.com/j-veylop/stockscanner-tui/internal/ui/components"
	"github.com/j-veylop/stockscanner-tui/internal/version"
)

// withManager loads configuration, opens the services and runs fn.
// Desktop notifications are off for one-shot commands.
func withManager(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, mgr *services.Manager) error) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	closeLog, err := configureLogging(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	mgr, err := services.NewManager(cfg, services.WithNotifier(func(string, string) error { return nil }))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() { _ = mgr.Close() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return explain(fn(ctx, mgr))
}

// explain adds the way out to errors that need a new sign-in.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrSessionExpired), errors.Is(err, api.ErrTokenRefresh):
		return fmt.Errorf("%w Run 'scanner login' first", err)
	default:
		return err
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	var username, password string

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		Long:  "Sign in and store the credential. Without --password the password is prompted for on a terminal, or read from the first line of piped stdin.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				user, err := mgr.Client().Login(ctx, username, password)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", user.DisplayName())
				return nil
			})
		},
	}
	login.Flags().StringVarP(&username, "username", "u", os.Getenv("SCANNER_USERNAME"), "username")
	login.Flags().StringVarP(&password, "password", "p", "", "password")
	return login
}

// readPassword prompts without echo when in is a terminal and falls back to
// a single line for piped input.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		_, _ = fmt.Fprint(prompt, "Password: ")
		pw, err := term.ReadPassword(f.Fd())
		_, _ = fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear stored credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				if err := mgr.Client().Logout(ctx); err != nil {
					// Local state is already cleared.
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "server logout failed: %v\n", err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sign-in, session and rate-limit state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(_ context.Context, mgr *services.Manager) error {
				out := cmd.OutOrStdout()
				client := mgr.Client()

				_, _ = fmt.Fprintf(out, "api:         %s (%s)\n", client.BaseURL(), mgr.Config().Environment)
				_, _ = fmt.Fprintf(out, "state:       %s\n", client.State())
				if user := client.CurrentUser(); user != nil && client.IsAuthenticated() {
					_, _ = fmt.Fprintf(out, "user:        %s\n", user.DisplayName())
				} else {
					_, _ = fmt.Fprintln(out, "user:        signed out")
				}
				if exp, ok := client.TokenExpiry(); ok {
					_, _ = fmt.Fprintf(out, "token:       expires %s\n", exp.Local().Format(time.RFC3339))
				}
				if client.Session().IsSessionValid() {
					_, _ = fmt.Fprintf(out, "session:     %s left\n", components.FormatDuration(client.Session().Remaining()))
				}
				limiter := client.Limiter()
				_, _ = fmt.Fprintf(out, "rate limit:  %d/%d remaining\n", limiter.Remaining(), limiter.Limit())
				return nil
			})
		},
	}
}

func newHealthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the API is reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				start := time.Now()
				h, err := mgr.Client().Health(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %dms\n", h.Status, h.Version, time.Since(start).Milliseconds())
				return nil
			})
		},
	}
}

func newStocksCmd(flags *globalFlags) *cobra.Command {
	var query models.StockQuery

	stocks := &cobra.Command{
		Use:   "stocks [search]",
		Short: "List stocks",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				query.Search = args[0]
			}
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				page, err := mgr.Client().Stocks(ctx, query)
				if err != nil {
					return err
				}
				if len(page.Results) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no stocks")
					return nil
				}

				t := newTable("TICKER", "COMPANY", "PRICE", "CHANGE", "VOLUME", "MKT CAP")
				for _, s := range page.Results {
					t.Row(
						s.Ticker,
						s.CompanyName,
						fmt.Sprintf("%.2f", s.CurrentPrice),
						components.FormatPercent(s.ChangePercent),
						components.FormatCompact(float64(s.Volume)),
						components.FormatCompact(s.MarketCap),
					)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d stocks\n", len(page.Results), page.Count)
				return nil
			})
		},
	}
	stocks.Flags().StringVarP(&query.Sort, "sort", "s", "ticker", "ordering: ticker|price|change|volume|market_cap, '-' prefix for descending")
	stocks.Flags().IntVarP(&query.Limit, "limit", "n", 50, "maximum rows")
	return stocks
}

func newWatchlistCmd(flags *globalFlags) *cobra.Command {
	wl := &cobra.Command{Use: "watchlist", Short: "Manage the watchlist"}

	wl.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List watched tickers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				items, err := mgr.Client().Watchlist(ctx)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "watchlist is empty")
					return nil
				}
				t := newTable("TICKER", "COMPANY", "PRICE", "ALERT", "NOTES")
				for _, it := range items {
					alert := "-"
					if it.AlertPrice > 0 {
						alert = fmt.Sprintf("%.2f", it.AlertPrice)
					}
					t.Row(it.Ticker, it.CompanyName, fmt.Sprintf("%.2f", it.CurrentPrice), alert, it.Notes)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	})

	var req models.WatchlistAddRequest
	add := &cobra.Command{
		Use:   "add <ticker>",
		Short: "Add a ticker to the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Ticker = strings.ToUpper(strings.TrimSpace(args[0]))
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				item, err := mgr.Client().AddToWatchlist(ctx, req)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s)\n", item.Ticker, item.ID)
				return nil
			})
		},
	}
	add.Flags().Float64Var(&req.AlertPrice, "alert", 0, "alert price")
	add.Flags().StringVar(&req.Notes, "notes", "", "notes")
	wl.AddCommand(add)

	wl.AddCommand(&cobra.Command{
		Use:   "remove <ticker>",
		Short: "Remove a ticker from the watchlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := strings.ToUpper(strings.TrimSpace(args[0]))
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				items, err := mgr.Client().Watchlist(ctx)
				if err != nil {
					return err
				}
				for _, it := range items {
					if it.Ticker != ticker {
						continue
					}
					if err := mgr.Client().RemoveFromWatchlist(ctx, it.ID); err != nil {
						return err
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", ticker)
					return nil
				}
				return fmt.Errorf("%s is not on the watchlist", ticker)
			})
		},
	})

	return wl
}

func newPortfolioCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "portfolio",
		Short: "Show holdings and unrealized gains",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(ctx context.Context, mgr *services.Manager) error {
				p, err := mgr.Client().Portfolio(ctx)
				if err != nil {
					return err
				}
				t := newTable("TICKER", "SHARES", "AVG COST", "PRICE", "VALUE", "GAIN")
				for _, h := range p.Holdings {
					t.Row(
						h.Ticker,
						fmt.Sprintf("%g", h.Shares),
						fmt.Sprintf("%.2f", h.AverageCost),
						fmt.Sprintf("%.2f", h.CurrentPrice),
						components.FormatMoney(h.MarketValue()),
						components.FormatSignedMoney(h.GainLoss()),
					)
				}
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, t.Render())
				_, _ = fmt.Fprintf(out, "cash %s · total %s · unrealized %s\n",
					components.FormatMoney(p.Cash),
					components.FormatMoney(p.TotalValue()),
					components.FormatSignedMoney(p.TotalGainLoss()))
				return nil
			})
		},
	}
}

func newRequestsCmd(flags *globalFlags) *cobra.Command {
	var limit, hours int

	requests := &cobra.Command{
		Use:   "requests",
		Short: "Show the local request log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(cmd, flags, func(_ context.Context, mgr *services.Manager) error {
				summary, err := mgr.LatencySummary(hours)
				if err != nil {
					return err
				}
				recent, err := mgr.RecentRequests(limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "last %dh: %d requests · avg %.0fms · max %dms · %d slow · %.1f%% errors\n",
					hours, summary.TotalRequests, summary.AvgDurationMs, summary.MaxDurationMs,
					summary.SlowCount, summary.ErrorRate())
				if len(recent) == 0 {
					return nil
				}

				t := newTable("TIME", "METHOD", "STATUS", "MS", "URL")
				for _, r := range recent {
					status := fmt.Sprintf("%d", r.StatusCode)
					if r.StatusCode == 0 {
						status = "ERR"
					}
					t.Row(r.Timestamp.Local().Format("01-02 15:04:05"), r.Method, status, fmt.Sprintf("%d", r.DurationMs), r.URL)
				}
				_, _ = fmt.Fprintln(out, t.Render())
				return nil
			})
		},
	}
	requests.Flags().IntVarP(&limit, "limit", "n", 20, "number of recent requests")
	requests.Flags().IntVar(&hours, "hours", 24, "summary window in hours")
	return requests
}
