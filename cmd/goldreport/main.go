package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/shanehull/goldbot/internal/app"
	"github.com/shanehull/goldbot/internal/config"
	"github.com/shanehull/goldbot/internal/logging"
	"github.com/shanehull/goldbot/internal/notify"
)

var (
	sourcesFile = flag.String("sources", "", "(-s) Path to a TOML sources file (overrides SOURCES_FILE)")
	sendEmail   = flag.Bool("email", false, "(-e) Email the report using the SMTP_* environment settings")
	timeout     = flag.Duration("timeout", 0, "(-t) Per-fetch timeout, e.g. 15s (overrides FETCH_TIMEOUT)")
)

func init() {
	flag.StringVar(sourcesFile, "s", "", "(-s) Path to a TOML sources file (shorthand)")
	flag.BoolVar(sendEmail, "e", false, "(-e) Email the report (shorthand)")
	flag.DurationVar(timeout, "t", 0, "(-t) Per-fetch timeout (shorthand)")

	flag.Usage = func() {
		fmt.Printf("Usage of %s:\n", os.Args[0])
		for _, name := range []string{"sources", "email", "timeout"} {
			if f := flag.CommandLine.Lookup(name); f != nil {
				fmt.Printf("  -%s\n", f.Name)
				fmt.Printf("    %s\n", f.Usage)
			}
		}
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Fatal error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if *sourcesFile != "" {
		cfg.SourcesFile = *sourcesFile
	}
	if *timeout > 0 {
		cfg.FetchTimeout = *timeout
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		fmt.Printf("Fatal error setting up logging: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		logger.Fatal("setup", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	generatedAt := time.Now()
	report := a.Reports.BuildReport(ctx)
	if err := notify.PrintReport(os.Stdout, report); err != nil {
		logger.Error("print report", zap.Error(err))
	}

	if !*sendEmail {
		return
	}
	if !cfg.EmailEnabled() {
		logger.Fatal("email requested but SMTP_SERVER, SMTP_USER, SMTP_PASS and TO_EMAIL are not all set")
	}

	msg, err := notify.NewHTMLEmailRenderer().Render(report, generatedAt.In(reportLocation(cfg)))
	if err != nil {
		logger.Fatal("render email", zap.Error(err))
	}
	sender := notify.NewEmailSender(notify.EmailConfig{
		SMTPServer: cfg.SMTPServer,
		SMTPPort:   cfg.SMTPPort,
		SMTPUser:   cfg.SMTPUser,
		SMTPPass:   cfg.SMTPPass,
		FromEmail:  cfg.FromEmail,
		ToEmail:    cfg.ToEmail,
		Enabled:    true,
	}, logger)
	if err := sender.Send(msg); err != nil {
		logger.Fatal("email", zap.Error(err))
	}
}

func reportLocation(cfg config.Config) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		return time.UTC
	}
	return loc
}
