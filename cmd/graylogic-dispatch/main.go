// Gray Logic Dispatch - device command coordination service
//
// This is the main entry point. Its subcommands:
//
//	graylogic-dispatch [serve] [-config path]   run the service per config
//	graylogic-dispatch demo [-config path]      run wake_up then sleep and exit
//	graylogic-dispatch token -subject name      print a signed API token
//	graylogic-dispatch migrate [up|down|status] manage the SQLite schema
//	graylogic-dispatch version                  print build information
//
// The service registers the configured simulated devices, exposes them
// through the REST API, the WebSocket hub and the MQTT command bridge, and
// records program executions in SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-dispatch/internal/auth"
	"github.com/nerrad567/gray-logic-dispatch/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither -config nor GRAYLOGIC_CONFIG is set
// and the file exists. Without it the built-in defaults apply.
const defaultConfigPath = "configs/config.yaml"

// errUsage is returned for unknown subcommands.
var errUsage = errors.New("usage: graylogic-dispatch [serve|demo|token|migrate|version] [flags]")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run selects the subcommand. Separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		return runServe(ctx, args)
	case "demo":
		return runDemo(ctx, args, out)
	case "token":
		return runToken(args, out)
	case "migrate":
		return runMigrate(ctx, args, out)
	case "version":
		fmt.Fprintf(out, "graylogic-dispatch %s (commit %s, built %s)\n", version, commit, date)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// loadConfig resolves the configuration path: the flag, then
// GRAYLOGIC_CONFIG, then defaultConfigPath if present. With no file at all
// the built-in defaults (plus environment overrides) are used.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("GRAYLOGIC_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat(defaultConfigPath); err != nil {
			return config.Default()
		}
		path = defaultConfigPath
	}
	return config.Load(path)
}

// runToken prints a signed access token for the API and WebSocket.
func runToken(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "configuration file")
	subject := fs.String("subject", "", "token subject (user or service name)")
	role := fs.String("role", string(auth.RoleOperator), "role: viewer, operator or admin")
	ttl := fs.Duration("ttl", 0, "token lifetime (default security.jwt.access_token_ttl)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parsing flags: %w", err)
	}
	if *subject == "" {
		return fmt.Errorf("%w: token requires -subject", errUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Security.JWT.Secret == "" {
		return errors.New("security.jwt.secret is not set (GRAYLOGIC_JWT_SECRET)")
	}

	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, lifetime)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Fprintln(out, token)
	return nil
}
