package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/notion-eqfix/internal/browser"
	"github.com/pdiddy/notion-eqfix/internal/history"
	"github.com/pdiddy/notion-eqfix/internal/report"
	"github.com/pdiddy/notion-eqfix/internal/traverse"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

var fixCmd = &cobra.Command{
	Use:   "fix --url <page-url>",
	Short: "Convert math markers on a live Notion page into equations",
	Long: `Fix opens the page in Chrome, walks you through the Notion login gate if
one appears, then repeatedly scans the rendered text for $...$ and $$...$$
markers and converts each into a native equation block. The page is mutated;
there is no undo beyond Notion's own page history.`,
	RunE: runFix,
}

func init() {
	fixCmd.Flags().String("url", "", "Notion page URL (required)")
	_ = fixCmd.MarkFlagRequired("url")
	fixCmd.Flags().String("email", "", "login email (default: NOTION_EMAIL env, then .secrets/notion-email)")
	fixCmd.Flags().Duration("login-timeout", 0, "how long to wait for manual sign-in (default 10m)")
	fixCmd.Flags().Bool("headless", false, "run Chrome without a window (breaks manual code entry)")
	fixCmd.Flags().String("chrome", "", "Chrome binary path (default: auto-detect)")
	fixCmd.Flags().Int("max-cycles", 0, "hard ceiling on scan/convert cycles (default 2000)")
	fixCmd.Flags().Duration("hold-open", 0, "keep the browser open after the run (default 10s)")
	fixCmd.Flags().String("out", "", "write a YAML run summary to this path")
	fixCmd.Flags().Bool("no-history", false, "do not record this run in the history database")
	fixCmd.Flags().String("history-db", "", "history database path (default: user data directory)")

	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	url, _ := cmd.Flags().GetString("url")

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = os.Getenv("NOTION_EMAIL")
	}
	if email == "" {
		email = viper.GetString("email")
	}
	email = secretDefault("notion-email", email)

	loginTimeout, _ := cmd.Flags().GetDuration("login-timeout")
	headless, _ := cmd.Flags().GetBool("headless")
	chromeBin, _ := cmd.Flags().GetString("chrome")
	maxCycles, _ := cmd.Flags().GetInt("max-cycles")
	holdOpen, _ := cmd.Flags().GetDuration("hold-open")
	outPath, _ := cmd.Flags().GetString("out")
	noHistory, _ := cmd.Flags().GetBool("no-history")
	historyDB, _ := cmd.Flags().GetString("history-db")

	cfg := types.RunConfig{
		Browser: types.BrowserConfig{
			Headless: headless,
			Bin:      chromeBin,
			HoldOpen: holdOpen,
		},
		Login: types.LoginConfig{
			Email:   email,
			Timeout: loginTimeout,
		},
		Traversal: types.TraversalConfig{
			MaxCycles: maxCycles,
		},
		History: types.HistoryConfig{
			Path:     historyDB,
			Disabled: noHistory,
		},
	}.WithDefaults()

	if cfg.Browser.Headless {
		fmt.Fprintln(os.Stderr, "warning: headless mode cannot show the login gate; use only on pages that need no sign-in")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, err := browser.Open(ctx, url, cfg.Browser, os.Stderr)
	if err != nil {
		return fmt.Errorf("opening browser session: %w", err)
	}
	defer session.Close()

	if err := session.EnsureLoggedIn(ctx, cfg.Login); err != nil {
		return fmt.Errorf("reaching page content: %w", err)
	}

	summary, runErr := traverse.New(session.Surface(cfg.Traversal), cfg.Traversal, os.Stdout).Run(ctx)
	summary.URL = url

	report.Print(os.Stdout, summary)

	if outPath != "" {
		if err := report.WriteYAML(outPath, summary); err != nil {
			fmt.Fprintf(os.Stderr, "warning: summary write failed: %v\n", err)
		}
	}

	if !cfg.History.Disabled {
		if err := saveHistory(cfg.History, summary); err != nil {
			fmt.Fprintf(os.Stderr, "warning: history save failed: %v\n", err)
		}
	}

	if runErr == nil {
		session.HoldOpen(ctx, cfg.Browser.HoldOpen)
	}
	return runErr
}

func saveHistory(cfg types.HistoryConfig, summary types.RunSummary) error {
	path := cfg.Path
	if path == "" {
		path = history.DefaultPath()
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return store.Save(ctx, summary)
}
