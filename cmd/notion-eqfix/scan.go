package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize/english"
	"github.com/spf13/cobra"

	"github.com/pdiddy/notion-eqfix/internal/browser"
	"github.com/pdiddy/notion-eqfix/internal/scanner"
	"github.com/pdiddy/notion-eqfix/pkg/types"
)

var scanCmd = &cobra.Command{
	Use:   "scan [page-url]",
	Short: "Report convertible math markers without changing anything",
	Long: `Scan lists every $...$ and $$...$$ span the fix subcommand would convert,
without touching the page. Give either a live page URL or --html with a saved
page export.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().String("html", "", "scan a saved HTML file instead of a live page")
	scanCmd.Flags().Bool("check", false, "exit non-zero when convertible spans remain")
	scanCmd.Flags().String("email", "", "login email for live scans (default: NOTION_EMAIL env, then .secrets/notion-email)")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	htmlPath, _ := cmd.Flags().GetString("html")
	check, _ := cmd.Flags().GetBool("check")

	if (htmlPath == "") == (len(args) == 0) {
		return fmt.Errorf("provide exactly one of: a page URL, or --html <file>")
	}

	var (
		result scanner.Result
		err    error
	)
	if htmlPath != "" {
		result, err = scanFile(htmlPath)
	} else {
		result, err = scanLive(cmd, args[0])
	}
	if err != nil {
		return err
	}

	for _, span := range result.Spans {
		fmt.Printf("%-6s %q\n", span.Kind, span.Raw)
	}
	fmt.Printf("Found %s", english.Plural(len(result.Spans), "convertible span", ""))
	if n := len(result.Unmatched); n > 0 {
		fmt.Printf(" and %s", english.Plural(n, "unpaired marker", ""))
	}
	fmt.Println(".")

	if check && len(result.Spans) > 0 {
		return fmt.Errorf("%d span(s) still convertible", len(result.Spans))
	}
	return nil
}

func scanFile(path string) (scanner.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return scanner.ScanHTML(f)
}

func scanLive(cmd *cobra.Command, url string) (scanner.Result, error) {
	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = os.Getenv("NOTION_EMAIL")
	}
	email = secretDefault("notion-email", email)

	cfg := types.RunConfig{Login: types.LoginConfig{Email: email}}.WithDefaults()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session, err := browser.Open(ctx, url, cfg.Browser, os.Stderr)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("opening browser session: %w", err)
	}
	defer session.Close()

	if err := session.EnsureLoggedIn(ctx, cfg.Login); err != nil {
		return scanner.Result{}, fmt.Errorf("reaching page content: %w", err)
	}

	surface := session.Surface(cfg.Traversal)
	for pass := 0; pass < cfg.Traversal.MaxExpandPasses; pass++ {
		opened, err := surface.ExpandCollapsed(ctx)
		if err != nil {
			return scanner.Result{}, fmt.Errorf("expanding toggles: %w", err)
		}
		if opened == 0 {
			break
		}
	}

	blocks, err := surface.TextBlocks(ctx)
	if err != nil {
		return scanner.Result{}, fmt.Errorf("reading page blocks: %w", err)
	}

	var result scanner.Result
	for _, block := range blocks {
		r := scanner.ScanBlock(block.Ref, block.Text)
		result.Spans = append(result.Spans, r.Spans...)
		result.Unmatched = append(result.Unmatched, r.Unmatched...)
	}
	return result, nil
}
