package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/threadsokc/workday-calendar/internal/calendar"
	"github.com/threadsokc/workday-calendar/internal/config"
	"github.com/threadsokc/workday-calendar/internal/event"
	"github.com/threadsokc/workday-calendar/internal/logger"
	"github.com/threadsokc/workday-calendar/internal/nonce"
	"github.com/threadsokc/workday-calendar/internal/server"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// now stamps encoded documents; tests replace it
var now = time.Now

type rootOptions struct {
	configPath string
	verbose    bool
}

type encodeOptions struct {
	summary     string
	start       string
	end         string
	location    string
	uri         string
	description string
	fileName    string
	timeZone    string
	out         string
}

type inspectOptions struct {
	format string
	sort   string
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	root := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "workday-calendar",
		Short: "Serve and build iCalendar downloads for the next Threads OKC workday",
		Long: `A tool that turns a single event into an RFC 5545 calendar file.
It can encode events from flags, inspect existing .ics files, and serve
the "next workday" widget with its calendar download over HTTP.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&root.configPath, "config", "", "Path to YAML config (created with defaults if missing)")
	cmd.PersistentFlags().BoolVar(&root.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newEncodeCmd(root),
		newInspectCmd(root),
		newServeCmd(root),
		newNonceCmd(root),
	)
	return cmd
}

func newEncodeCmd(root *rootOptions) *cobra.Command {
	opts := &encodeOptions{}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode one event as an .ics document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.summary, "summary", "", "Event title (required)")
	cmd.Flags().StringVar(&opts.start, "start", "", "Start: unix seconds, RFC 3339, or '2006-01-02 15:04' in --timezone (required)")
	cmd.Flags().StringVar(&opts.end, "end", "", "End, same forms as --start (required)")
	cmd.Flags().StringVar(&opts.location, "location", "", "Event location")
	cmd.Flags().StringVar(&opts.uri, "uri", "", "Absolute http(s) link for the event")
	cmd.Flags().StringVar(&opts.description, "description", "", "Event description")
	cmd.Flags().StringVar(&opts.fileName, "filename", "event.ics", "Attachment file name")
	cmd.Flags().StringVar(&opts.timeZone, "timezone", "", "IANA zone for wall-clock dates (default from config)")
	cmd.Flags().StringVar(&opts.out, "out", "-", "Output file, or - for stdout")

	cmd.MarkFlagRequired("summary")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func runEncode(cmd *cobra.Command, root *rootOptions, opts *encodeOptions) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	zone := opts.timeZone
	if zone == "" {
		zone = cfg.Timezone
	}

	fields := event.Fields{
		Summary:     opts.summary,
		DateStart:   opts.start,
		DateEnd:     opts.end,
		Address:     opts.location,
		URI:         opts.uri,
		Description: opts.description,
		FileName:    opts.fileName,
	}
	rec, err := fields.Record(zone)
	if err != nil {
		return err
	}

	body, err := encoderFor(cfg).Encode(rec, now())
	if err != nil {
		return fmt.Errorf("encoding calendar: %w", err)
	}

	if opts.out == "-" {
		_, err := io.WriteString(cmd.OutOrStdout(), body)
		return err
	}
	if err := os.WriteFile(opts.out, []byte(body), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.out, err)
	}
	if root.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", opts.out, len(body))
	}
	return nil
}

func newInspectCmd(root *rootOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <file|->",
		Short: "Summarize the events in an .ics document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.sort, "sort", "start", "Sort order: start or summary")

	return cmd
}

func runInspect(cmd *cobra.Command, root *rootOptions, opts *inspectOptions, source string) error {
	format := OutputFormat(strings.ToLower(opts.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", opts.format)
	}
	order := SortOrder(strings.ToLower(opts.sort))
	if order != SortByStart && order != SortBySummary {
		return fmt.Errorf("invalid sort: %s (must be 'start' or 'summary')", opts.sort)
	}

	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("loading timezone: %w", err)
	}

	var r io.Reader
	if source == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(source)
		if err != nil {
			return fmt.Errorf("opening %s: %w", source, err)
		}
		defer f.Close()
		r = f
	}

	events, err := calendar.Inspect(r)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", source, err)
	}
	sortEvents(events, order)

	result := &OutputResult{
		Source:     source,
		Events:     events,
		EventCount: len(events),
	}
	if err := WriteOutput(cmd.OutOrStdout(), result, format, loc, root.verbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the workday widget and calendar downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root)
		},
	}
}

func runServe(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if root.verbose {
		level = logger.LevelDebug
	}
	logger.SetDefault(logger.New(level, cmd.ErrOrStderr()))
	if root.verbose && cfg.LogLevel != "" && !strings.EqualFold(cfg.LogLevel, string(logger.LevelDebug)) {
		logger.Warn("--verbose overrides configured log level", logger.Fields{"log_level": cfg.LogLevel})
	}
	logger.Debug("config loaded", logger.Fields{"path": root.configPath, "listen": cfg.Listen})

	issuer, err := nonce.New(cfg.Nonce.Secret, nonce.WithLifetime(cfg.Nonce.Lifetime.Std()))
	if err != nil {
		return fmt.Errorf("creating nonce issuer: %w", err)
	}

	srv, err := server.New(server.Options{
		Config:  cfg,
		Issuer:  issuer,
		Encoder: encoderFor(cfg),
		Logger:  logger.Default(),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("application starting up", logger.Fields{"listen": cfg.Listen, "timezone": cfg.Timezone})
	defer logger.Info("application stopped", nil)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", nil, err)
		return err
	}
	return nil
}

func newNonceCmd(root *rootOptions) *cobra.Command {
	var action string

	cmd := &cobra.Command{
		Use:   "nonce",
		Short: "Print a form token that the server will accept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if action == "" {
				action = cfg.Nonce.Action
			}

			issuer, err := nonce.New(cfg.Nonce.Secret, nonce.WithLifetime(cfg.Nonce.Lifetime.Std()))
			if err != nil {
				return fmt.Errorf("creating nonce issuer: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), issuer.Create(action))
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Action the token is bound to (default from config)")
	return cmd
}

func encoderFor(cfg *config.Config) *calendar.Encoder {
	return calendar.NewEncoder(calendar.Options{
		Vendor:    cfg.Calendar.Vendor,
		Product:   cfg.Calendar.Product,
		UIDDomain: cfg.Calendar.UIDDomain,
	})
}

// Execute runs the CLI
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}
