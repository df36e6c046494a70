package ops

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Sentinel errors surfaced to the CLI layer, which maps them to exit codes.
var (
	// ErrUnknownCommand reports an unrecognized dispatcher token.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrDockerNotFound reports a missing docker binary.
	ErrDockerNotFound = errors.New("docker not found in PATH")
	// ErrEnvFileCreated reports that .env was just created from the template
	// and must be edited before retrying.
	ErrEnvFileCreated = errors.New("configuration file created; edit it before retrying")
)

const (
	defaultEnvFile     = ".env"
	defaultEnvTemplate = ".env.example"
	defaultService     = "scraper"

	dashboardURL = "http://localhost:9090"
)

// command describes one dispatcher action. Every recognized token maps to
// exactly one docker invocation.
type command struct {
	args     []string
	needsEnv bool
	before   string
	after    string
}

var commands = map[string]command{
	"build": {
		args:   []string{"compose", "build"},
		before: "Building scraper image...",
	},
	"run": {
		args:     []string{"compose", "up"},
		needsEnv: true,
		before:   "Running scraper in the foreground...",
	},
	"start": {
		args:     []string{"compose", "up", "-d"},
		needsEnv: true,
		before:   "Starting scraper in the background...",
		after:    "Scraper started. Use 'logs' to follow output.",
	},
	"stop": {
		args:   []string{"compose", "down"},
		before: "Stopping scraper containers...",
	},
	"logs": {
		args: []string{"compose", "logs", "-f"},
	},
	"status": {
		args: []string{"compose", "ps"},
	},
	"clean": {
		args:   []string{"compose", "down", "--rmi", "all", "--volumes", "--remove-orphans"},
		before: "Removing scraper containers, images and volumes...",
	},
	"dev": {
		args:     []string{"compose", "-f", "docker-compose.dev.yml", "up"},
		needsEnv: true,
		before:   "Running scraper with the development compose file...",
	},
	"monitor": {
		args:     []string{"compose", "--profile", "monitoring", "up", "-d"},
		needsEnv: true,
		before:   "Starting scraper with the monitoring profile...",
		after: "Prometheus dashboard: " + dashboardURL +
			" (scraper metrics published on http://localhost:9091/metrics)",
	},
	"health": {
		args: []string{"compose", "exec", defaultService, "/app/merchantfeed", "health"},
	},
	"shell": {
		args: []string{"compose", "exec", defaultService, "/bin/sh"},
	},
}

// commandOrder fixes the help-text listing.
var commandOrder = []string{
	"build", "run", "start", "stop", "logs", "status",
	"clean", "dev", "monitor", "health", "shell", "help",
}

var commandSummaries = map[string]string{
	"build":   "Build the scraper container image",
	"run":     "Run the scraper in the foreground (requires .env)",
	"start":   "Start the scraper in the background (requires .env)",
	"stop":    "Stop and remove the scraper containers",
	"logs":    "Follow container log output",
	"status":  "Show container status",
	"clean":   "Remove containers, images and volumes",
	"dev":     "Run using docker-compose.dev.yml (requires .env)",
	"monitor": "Start with the monitoring profile enabled (requires .env)",
	"health":  "Run the health check inside the container",
	"shell":   "Open a shell inside the running container",
	"help":    "Show this help text",
}

// Dispatcher maps a single operations token to one docker compose invocation.
type Dispatcher struct {
	runner   CommandRunner
	out      io.Writer
	dir      string
	envFile  string
	template string
	lookPath func(file string) (string, error)
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithEnvFiles overrides the config file and template paths, relative to the
// working directory.
func WithEnvFiles(envFile, template string) Option {
	return func(d *Dispatcher) {
		d.envFile = envFile
		d.template = template
	}
}

// WithLookPath overrides binary lookup (used by tests).
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(d *Dispatcher) {
		d.lookPath = fn
	}
}

// New builds a Dispatcher operating in dir and writing messages to out.
func New(runner CommandRunner, dir string, out io.Writer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		runner:   runner,
		out:      out,
		dir:      dir,
		envFile:  defaultEnvFile,
		template: defaultEnvTemplate,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch executes the action for token. An empty token means "help".
// Unknown tokens print the usage text and return ErrUnknownCommand.
func (d *Dispatcher) Dispatch(ctx context.Context, token string) error {
	if token == "" || token == "help" {
		d.printUsage()
		return nil
	}

	cmd, ok := commands[token]
	if !ok {
		fmt.Fprintf(d.out, "Error: unknown command %q\n\n", token)
		d.printUsage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, token)
	}

	if _, err := d.lookPath("docker"); err != nil {
		return fmt.Errorf("%w: install Docker to use the %q command", ErrDockerNotFound, token)
	}

	if cmd.needsEnv {
		if err := d.ensureEnvFile(); err != nil {
			return err
		}
	}

	if cmd.before != "" {
		fmt.Fprintln(d.out, cmd.before)
	}

	if err := d.runner.Run(ctx, d.dir, "docker", cmd.args...); err != nil {
		return fmt.Errorf("docker %s: %w", strings.Join(cmd.args, " "), err)
	}

	if cmd.after != "" {
		fmt.Fprintln(d.out, cmd.after)
	}
	return nil
}

// ensureEnvFile checks that the configuration file exists. When missing it is
// created from the template and the dispatcher aborts so the operator can
// fill in credentials. An existing file is never touched.
func (d *Dispatcher) ensureEnvFile() error {
	envPath := filepath.Join(d.dir, d.envFile)
	if _, err := os.Stat(envPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", envPath, err)
	}

	templatePath := filepath.Join(d.dir, d.template)
	data, err := os.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("read template %s: %w", templatePath, err)
	}
	if err := os.WriteFile(envPath, data, 0o600); err != nil {
		return fmt.Errorf("create %s: %w", envPath, err)
	}

	fmt.Fprintf(d.out, "Created %s from %s. Edit it with your settings and re-run.\n",
		d.envFile, d.template)
	return ErrEnvFileCreated
}

func (d *Dispatcher) printUsage() {
	fmt.Fprintln(d.out, "Usage: merchantfeed ops <command>")
	fmt.Fprintln(d.out)
	fmt.Fprintln(d.out, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(d.out, "  %-8s %s\n", name, commandSummaries[name])
	}
}
