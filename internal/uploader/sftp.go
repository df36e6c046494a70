// Package uploader pushes generated feeds to the Merchant Center SFTP
// endpoint.
package uploader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"github.com/feedforge/merchantfeed/internal/metrics"
)

// Sentinel errors callers can branch on with errors.Is.
var (
	// ErrMissingCredentials is returned when username or password is unset.
	ErrMissingCredentials = errors.New("sftp credentials not configured")
	// ErrAuthFailed reports a rejected SSH authentication attempt.
	ErrAuthFailed = errors.New("sftp authentication failed")
	// ErrConnectionFailed reports that the server could not be reached.
	ErrConnectionFailed = errors.New("sftp connection failed")
)

// Config holds the SFTP endpoint parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration
}

// Client uploads files over SFTP with password authentication.
type Client struct {
	cfg    Config
	logger *zap.Logger
}

// New validates the configuration and returns a Client. No connection is
// opened until Upload is called.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.Host == "" {
		return nil, errors.New("sftp host is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("sftp port %d is invalid", cfg.Port)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, logger: logger}, nil
}

// Addr returns the host:port the client dials.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// Upload copies localPath to remoteName on the server. An empty remoteName
// defaults to the local basename.
func (c *Client) Upload(ctx context.Context, localPath, remoteName string) error {
	if remoteName == "" {
		remoteName = filepath.Base(localPath)
	}

	local, err := os.Open(localPath)
	if err != nil {
		metrics.ObserveUpload("error")
		return fmt.Errorf("open local file %s: %w", localPath, err)
	}
	defer local.Close()

	addr := c.Addr()
	c.logger.Info("Connecting to SFTP server", zap.String("addr", addr))

	sshClient, err := c.dial(ctx, addr)
	if err != nil {
		metrics.ObserveUpload("error")
		return err
	}
	defer sshClient.Close()

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		metrics.ObserveUpload("error")
		return fmt.Errorf("open sftp session: %w", err)
	}
	defer sftpClient.Close()

	remote, err := sftpClient.Create(remoteName)
	if err != nil {
		metrics.ObserveUpload("error")
		return fmt.Errorf("create remote file %s: %w", remoteName, err)
	}
	defer remote.Close()

	n, err := io.Copy(remote, local)
	if err != nil {
		metrics.ObserveUpload("error")
		return fmt.Errorf("upload %s: %w", localPath, err)
	}

	metrics.ObserveUpload("ok")
	c.logger.Info("Uploaded feed",
		zap.String("local", localPath),
		zap.String("remote", remoteName),
		zap.Int64("bytes", n),
	)
	return nil
}

// dial opens the SSH connection with a context-aware dialer. Host keys are
// not pinned for the partner upload endpoint.
func (c *Client) dial(ctx context.Context, addr string) (*ssh.Client, error) {
	sshConfig := &ssh.ClientConfig{
		User:            c.cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(c.cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         c.cfg.Timeout,
	}

	dialer := net.Dialer{Timeout: c.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial sftp server %s: %w: %w", addr, ErrConnectionFailed, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w: %w", addr, classifyHandshakeErr(err), err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// classifyHandshakeErr separates rejected credentials from transport problems.
// x/crypto/ssh reports authentication rejection only through the error text.
func classifyHandshakeErr(err error) error {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return ErrAuthFailed
	}
	return ErrConnectionFailed
}
