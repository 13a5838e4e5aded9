package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pricelab/avito-price-analyzer/internal/analyzer"
	"github.com/pricelab/avito-price-analyzer/internal/config"
	"github.com/pricelab/avito-price-analyzer/internal/scraper"
)

func main() {
	var (
		inputPath   string
		cookiesPath string
		openBrowser bool
	)
	flag.StringVar(&inputPath, "input", "", "input .xlsx (A=brand, B=model, C=purchase cost, no header)")
	flag.StringVar(&cookiesPath, "cookies", "", "optional Netscape cookies.txt for the marketplace session")
	flag.BoolVar(&openBrowser, "open-browser", true, "open the search page in a browser when every fetch attempt fails")
	flag.Parse()

	if inputPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Optional .env next to the binary.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jar, err := scraper.NewCookieJar(cookiesPath)
	if err != nil {
		logger.Error("failed to load cookies", "error", err)
		os.Exit(1)
	}
	if cookiesPath != "" {
		fmt.Println("cookies loaded from", cookiesPath)
	}

	client := scraper.NewSessionClient(cfg.Scraper.RequestTimeout, jar)
	fetcher := scraper.NewFetcher(client, cfg.Scraper.UserAgents, logger)

	a := analyzer.New(cfg, fetcher, &consoleReporter{openBrowser: openBrowser}, logger)

	report, err := a.Run(ctx, inputPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\ncancelled; no output file written")
			os.Exit(1)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("\nreport written to %s\n", report.OutputPath)
	for outcome, count := range report.OutcomeCounts() {
		fmt.Printf("  %-18s %d\n", outcome, count)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// consoleReporter prints pipeline progress to the terminal and, on a total
// fetch failure, opens the search page so the operator can solve the bot
// challenge by hand.
type consoleReporter struct {
	openBrowser bool
}

func (c *consoleReporter) Progress(percent int) {
	fmt.Printf("\rprogress: %3d%%", percent)
}

func (c *consoleReporter) Status(status string) {
	fmt.Printf("\rstatus: %s\n", status)
}

func (c *consoleReporter) Log(line string) {
	fmt.Printf("\r%s\n", line)
}

func (c *consoleReporter) ChallengeRequired(url string) {
	fmt.Printf("\rchallenge page hit; open %s in a browser, solve it, then re-run\n", url)
	if !c.openBrowser {
		return
	}
	if err := openInBrowser(url); err != nil {
		fmt.Fprintln(os.Stderr, "could not open browser:", err)
	}
}

func openInBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
