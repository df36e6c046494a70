// Package health implements the container health checks.
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Check is one named health probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// Runner executes checks in order and reports per-check results.
type Runner struct {
	checks []Check
	logger *zap.Logger
}

// NewRunner builds the standard check set: output directory writable, network
// reachability of the store, and SFTP credentials present when uploads are
// enabled.
func NewRunner(
	outputDir string,
	baseURL string,
	uploadEnabled bool,
	sftpUsername, sftpPassword string,
	client *http.Client,
	logger *zap.Logger,
) *Runner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	checks := []Check{
		{Name: "data directory", Run: func(_ context.Context) error {
			return checkWritableDir(outputDir)
		}},
		{Name: "network", Run: func(ctx context.Context) error {
			return checkNetwork(ctx, client, baseURL)
		}},
	}
	if uploadEnabled {
		checks = append(checks, Check{Name: "sftp credentials", Run: func(_ context.Context) error {
			if sftpUsername == "" || sftpPassword == "" {
				return fmt.Errorf("SFTP_USERNAME or SFTP_PASSWORD not set")
			}
			return nil
		}})
	}

	return &Runner{checks: checks, logger: logger}
}

// Run executes every check and returns an error when any of them failed.
func (r *Runner) Run(ctx context.Context) error {
	failures := 0
	for _, check := range r.checks {
		if err := check.Run(ctx); err != nil {
			failures++
			r.logger.Error("Health check failed", zap.String("check", check.Name), zap.Error(err))
			continue
		}
		r.logger.Info("Health check passed", zap.String("check", check.Name))
	}
	if failures > 0 {
		return fmt.Errorf("%d health check(s) failed", failures)
	}
	return nil
}

// checkWritableDir creates the directory if needed and verifies a file can be
// written and removed inside it.
func checkWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir %s: %w", dir, err)
	}
	probe := filepath.Join(dir, "health_check.tmp")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("data dir %s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("clean up probe file: %w", err)
	}
	return nil
}

func checkNetwork(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", baseURL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reach %s: %w", baseURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, baseURL)
	}
	return nil
}
