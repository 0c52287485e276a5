package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/odvcencio/scribe/pkg/catalog"
	"github.com/odvcencio/scribe/pkg/config"
	"github.com/odvcencio/scribe/pkg/eventlog"
	"github.com/odvcencio/scribe/pkg/logging"
	"github.com/odvcencio/scribe/pkg/recovery"
	"github.com/odvcencio/scribe/pkg/replay"
	"github.com/odvcencio/scribe/pkg/session"
	"github.com/odvcencio/scribe/pkg/telemetry"
	"github.com/odvcencio/scribe/pkg/watch"
)

// Version information - set via ldflags during build
var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printHelp()
		return 0
	}
	switch args[0] {
	case "--version", "-v", "version":
		printVersion()
		return 0
	case "--help", "-h", "help":
		printHelp()
		return 0
	case "replay":
		return runCommand(runReplayCommand, args[1:])
	case "recover":
		return runCommand(runRecoverCommand, args[1:])
	case "tail":
		return runCommand(runTailCommand, args[1:])
	case "sessions":
		return runCommand(runSessionsCommand, args[1:])
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(os.Stderr, "Error: unknown flag: %s\n", args[0])
		} else {
			fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n", args[0])
		}
		printHelp()
		return 2
	}
}

func runCommand(handler func([]string) error, args []string) int {
	if err := handler(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func printVersion() {
	fmt.Printf("Scribe %s\n", version)
	if commit != "unknown" {
		fmt.Printf("  Commit:     %s\n", commit)
	}
	if buildDate != "unknown" {
		fmt.Printf("  Built:      %s\n", buildDate)
	}
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

func printHelp() {
	fmt.Println(`Scribe - append-only event log for agent sessions

Usage:
  scribe <command> [flags]

Commands:
  replay      Replay a session's event log and print the folded state
  recover     Detect actions left without observations by a crash
  tail        Follow a session's event log as events are appended
  sessions    List sessions known to the catalog
  version     Show version information
  help        Show this help

Flags common to commands:
  -config <path>    Config file (default ~/.scribe/config.yaml)
  -session <id>     Session identifier
  -data <dir>       Override the session data directory`)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func openLogger(cfg *config.Config, sessionID string) *logging.Logger {
	log, err := logging.NewLogger(cfg.Logging.Dir, sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
		return nil
	}
	log.SetMinLevel(logging.ParseLevel(cfg.Logging.Level))
	return log
}

// setupTracing starts the stdout trace exporter when enabled. The returned
// shutdown func is a no-op when tracing is off.
func setupTracing(cfg *config.Config) func() {
	if !cfg.Telemetry.TracingEnabled {
		return func() {}
	}
	tp, err := telemetry.NewTracerProvider("scribe", version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: tracing disabled: %v\n", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}
}

func runReplayCommand(args []string) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	sessionID := fs.String("session", "", "session identifier")
	dataDir := fs.String("data", "", "session data directory")
	asJSON := fs.Bool("json", false, "print folded state as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *sessionID == "" {
		return fmt.Errorf("replay requires -session")
	}
	if err := session.ValidateID(*sessionID); err != nil {
		return err
	}

	log := openLogger(cfg, *sessionID)
	defer log.Close()
	defer setupTracing(cfg)()

	store, err := eventlog.Open(cfg.Data.Dir, *sessionID,
		eventlog.WithLockTimeout(cfg.Lock.Timeout),
		eventlog.WithLockRetryInterval(cfg.Lock.RetryInterval),
		eventlog.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	state, err := replay.Replay(ctx, store, log)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state.Events())
	}
	fmt.Printf("session %s: %d events, max seq %d\n", state.SessionID(), state.Len(), state.MaxSeq())
	for _, ev := range state.Events() {
		fmt.Printf("  %5d  %s  %s\n", ev.Seq(), ev.Timestamp().Format(time.RFC3339), ev.Kind())
	}
	return nil
}

func runRecoverCommand(args []string) error {
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	sessionID := fs.String("session", "", "session identifier")
	dataDir := fs.String("data", "", "session data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *sessionID == "" {
		return fmt.Errorf("recover requires -session")
	}
	if err := session.ValidateID(*sessionID); err != nil {
		return err
	}

	log := openLogger(cfg, *sessionID)
	defer log.Close()
	defer setupTracing(cfg)()

	store, err := eventlog.Open(cfg.Data.Dir, *sessionID,
		eventlog.WithLockTimeout(cfg.Lock.Timeout),
		eventlog.WithLockRetryInterval(cfg.Lock.RetryInterval),
		eventlog.WithLogger(log))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	state, err := replay.Replay(ctx, store, log)
	if err != nil {
		return err
	}

	unmatched := recovery.UnmatchedActions(state)
	if len(unmatched) == 0 {
		fmt.Printf("session %s: clean, no unmatched actions\n", *sessionID)
		return nil
	}
	fmt.Printf("session %s: %d unmatched action(s)\n", *sessionID, len(unmatched))
	for _, id := range unmatched {
		fmt.Printf("  %s\n", id)
	}
	return nil
}

func runTailCommand(args []string) error {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	sessionID := fs.String("session", "", "session identifier")
	dataDir := fs.String("data", "", "session data directory")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if *sessionID == "" {
		return fmt.Errorf("tail requires -session")
	}
	if err := session.ValidateID(*sessionID); err != nil {
		return err
	}

	log := openLogger(cfg, *sessionID)
	defer log.Close()

	store, err := eventlog.Open(cfg.Data.Dir, *sessionID,
		eventlog.WithLockTimeout(cfg.Lock.Timeout),
		eventlog.WithLockRetryInterval(cfg.Lock.RetryInterval),
		eventlog.WithLogger(log))
	if err != nil {
		return err
	}

	watcher, err := watch.New(store.Dir(), log)
	if err != nil {
		return err
	}
	defer watcher.Close()

	watcher.Subscribe(func(ref eventlog.Ref) {
		fmt.Printf("%5d  %s\n", ref.Seq, ref.Kind)
	})

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("tailing session %s (Ctrl-C to stop)\n", *sessionID)
	<-ctx.Done()
	return nil
}

func runSessionsCommand(args []string) error {
	fs := flag.NewFlagSet("sessions", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if !cfg.Catalog.Enabled {
		return fmt.Errorf("session catalog is disabled in config")
	}

	cat, err := catalog.Open(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no sessions recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-40s  %-14s  seq %5d  events %5d  last active %s\n",
			e.ID, e.Status, e.LastSeq, e.EventCount,
			e.LastActive.Format(time.RFC3339))
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
