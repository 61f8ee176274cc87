package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loykin/agenttrail"
	"github.com/loykin/agenttrail/internal/logger"
	"github.com/loykin/agenttrail/internal/version"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command with all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	statusFlags := &StatusFlags{}
	eventsFlags := &EventsFlags{}
	recordFlags := &RecordFlags{}
	templateFlags := &TemplateCreateFlags{}

	trailCommand := command{}

	root := createRootCommand(globalFlags)

	// Add subcommands
	root.AddCommand(
		createServeCommand(globalFlags),
		createStatusCommand(trailCommand, statusFlags),
		createEventsCommand(trailCommand, eventsFlags),
		createRecordCommand(trailCommand, recordFlags),
		createTemplateCommand(trailCommand, templateFlags),
		createVersionCommand(),
	)

	return root
}

// createRootCommand builds the root with the persistent --config flag
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "agenttrail",
		Short: "Agent event recording daemon and query tool",
		Long: `Agenttrail records agent lifecycle events (user input, model calls,
tool calls, errors) into an analytics sink and serves them back over HTTP.

Examples:
  agenttrail serve --config=config.toml       # Start daemon
  agenttrail status                           # Daemon and sink state
  agenttrail events --session-id=abc          # List recorded events
  agenttrail record --text="deploy finished"  # Record an ad-hoc event
  agenttrail template --kind=sqlite           # Write a starter config`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")

	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the agenttrail daemon",
		Long: `Start the agenttrail daemon to record and serve agent events.
All configuration is loaded from a config.toml file.

Examples:
  agenttrail serve --config=config.toml
  agenttrail serve config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}

	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}

	if configPath == "" {
		return fmt.Errorf("config file required: pass --config=config.toml or a positional path")
	}

	cfg, err := agenttrail.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logCfg := logger.Config{}
	if cfg.Log != nil {
		logCfg = *cfg.Log
	}
	log, logCloser := logger.New(logCfg)
	if logCloser != nil {
		defer func() { _ = logCloser.Close() }()
	}
	slog.SetDefault(log)

	rec, err := agenttrail.NewFromConfig(cfg, agenttrail.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to build recorder: %w", err)
	}
	defer func() { _ = rec.Close() }()

	// Metrics are opt-in via [metrics]
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := agenttrail.RegisterMetricsDefault(); err != nil {
			fmt.Printf("Warning: failed to register metrics: %v\n", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := agenttrail.ServeMetrics(cfg.Metrics.Listen); err != nil {
					fmt.Printf("Metrics server error: %v\n", err)
				}
			}()
		}
	}

	if cfg.Server == nil {
		return fmt.Errorf("[server] section required to run the daemon")
	}

	protocol := "HTTP"
	if cfg.Server.TLS != nil && cfg.Server.TLS.Enabled {
		protocol = "HTTPS"
	}
	server, err := agenttrail.NewHTTPServerFromConfig(*cfg.Server, rec)
	if err != nil {
		return fmt.Errorf("failed to create %s server: %w", protocol, err)
	}

	listen := cfg.Server.Listen
	if listen == "" {
		listen = ":8080"
	}
	fmt.Printf("Starting agenttrail %s server on %s%s\n", protocol, listen, cfg.Server.BasePath)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	return server.Close()
}

// createStatusCommand creates the status subcommand
func createStatusCommand(trailCommand command, statusFlags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Long: `Show the recorder and sink state of a running daemon.

Examples:
  agenttrail status
  agenttrail status --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trailCommand.Status(*statusFlags)
		},
	}
	cmd.Flags().StringVar(&statusFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&statusFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&statusFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

// createEventsCommand creates the events subcommand
func createEventsCommand(trailCommand command, eventsFlags *EventsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List recorded events",
		Long: `List recorded events, newest first.

Examples:
  agenttrail events --session-id=abc
  agenttrail events --type=TOOL_CALL --limit=20
  agenttrail events --invocation-id=inv-1 --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trailCommand.Events(*eventsFlags)
		},
	}
	cmd.Flags().StringVar(&eventsFlags.SessionID, "session-id", "", "filter by session ID")
	cmd.Flags().StringVar(&eventsFlags.InvocationID, "invocation-id", "", "filter by invocation ID")
	cmd.Flags().StringVar(&eventsFlags.EventType, "type", "", "filter by event type (e.g. TOOL_CALL)")
	cmd.Flags().IntVar(&eventsFlags.Limit, "limit", 100, "maximum number of events")
	cmd.Flags().StringVar(&eventsFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&eventsFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&eventsFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

// createRecordCommand creates the record subcommand
func createRecordCommand(trailCommand command, recordFlags *RecordFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record an ad-hoc event",
		Long: `Record one event through a running daemon. Session and invocation
IDs are generated when omitted and printed so the event can be queried.

Examples:
  agenttrail record --text="deploy finished"
  agenttrail record --agent=ci --session-id=release-42 --text="tests green"
  agenttrail record --error="pipeline failed" --agent=ci`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trailCommand.Record(*recordFlags)
		},
	}
	cmd.Flags().StringVar(&recordFlags.Agent, "agent", "cli", "agent name to record under")
	cmd.Flags().StringVar(&recordFlags.SessionID, "session-id", "", "session ID (generated when empty)")
	cmd.Flags().StringVar(&recordFlags.InvocationID, "invocation-id", "", "invocation ID (generated when empty)")
	cmd.Flags().StringVar(&recordFlags.UserID, "user-id", "", "user ID")
	cmd.Flags().StringVar(&recordFlags.Author, "author", "", "event author (defaults to --agent)")
	cmd.Flags().StringVar(&recordFlags.Role, "role", "model", "content role (user or model)")
	cmd.Flags().StringVar(&recordFlags.Text, "text", "", "event text content")
	cmd.Flags().StringVar(&recordFlags.ErrorMessage, "error", "", "error message to record")
	cmd.Flags().StringVar(&recordFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&recordFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&recordFlags.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

// createTemplateCommand creates the template command
func createTemplateCommand(trailCommand command, templateFlags *TemplateCreateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Create starter configuration files",
		Long: `Create a starter configuration file for a sink backend.
Templates can be edited and passed to 'agenttrail serve'.

Supported template kinds:
  sqlite      - Local SQLite file (no external services)
  postgres    - PostgreSQL event table
  clickhouse  - ClickHouse analytics table
  opensearch  - OpenSearch index
  secure      - SQLite with bearer auth and auto-generated TLS
  minimal     - In-memory SQLite for trying things out

Examples:
  agenttrail template --kind=sqlite --name=trail
  agenttrail template --kind=clickhouse --output=./configs/ch.toml
  agenttrail template --kind=secure --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return trailCommand.TemplateCreate(*templateFlags)
		},
	}

	cmd.Flags().StringVar(&templateFlags.Kind, "kind", "", "template kind (required): sqlite, postgres, clickhouse, opensearch, secure, minimal")
	cmd.Flags().StringVar(&templateFlags.Name, "name", "", "storage target name (defaults to agenttrail)")
	cmd.Flags().StringVar(&templateFlags.Output, "output", "", "output file path (defaults to name.toml)")
	cmd.Flags().BoolVar(&templateFlags.Force, "force", false, "overwrite existing template file")

	if err := cmd.MarkFlagRequired("kind"); err != nil {
		panic(err)
	}

	return cmd
}

// createVersionCommand creates the version subcommand
func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agenttrail version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agenttrail %s\n", version.Version)
		},
	}
}
