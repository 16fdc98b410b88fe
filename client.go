package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"recentedits/logger"
)

const (
	dialTimeout  = 100 * time.Millisecond
	startTimeout = 5 * time.Second
)

// Client relays one Neovim job's stdio to the shared tracker daemon, so
// every editor instance feeds the same tracker.
type Client struct {
	socketPath   string
	startTimeout time.Duration
}

func NewClient() *Client {
	return &Client{
		socketPath:   getSocketPath(),
		startTimeout: startTimeout,
	}
}

// Connect relays stdin and stdout over the tracker socket until the daemon
// hangs up.
func (c *Client) Connect() error {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return fmt.Errorf("tracker socket %s: %w", c.socketPath, err)
	}
	defer conn.Close()
	logger.Debug("connected to tracker at %s", c.socketPath)

	return relay(conn, os.Stdin, os.Stdout)
}

// relay copies in to conn and conn to out. When in runs dry only the write
// half of conn is closed, so replies to requests already sent still reach
// out. It returns once the daemon closes its side.
func relay(conn net.Conn, in io.Reader, out io.Writer) error {
	go func() {
		sent, err := io.Copy(conn, in)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			logger.Warn("relay to tracker: %v", err)
		}
		logger.Debug("relay: editor closed after %d bytes", sent)
		if uc, ok := conn.(*net.UnixConn); ok {
			uc.CloseWrite()
			return
		}
		conn.Close()
	}()

	received, err := io.Copy(out, conn)
	logger.Debug("relay: tracker closed after %d bytes", received)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("relay from tracker: %w", err)
	}
	return nil
}

// EnsureDaemonRunning starts the daemon unless one already accepts
// connections on the socket.
func (c *Client) EnsureDaemonRunning() error {
	if c.accepting() {
		return nil
	}
	if running, pid := isDaemonRunning(); running {
		logger.Debug("daemon %d is up but not accepting yet", pid)
		return c.waitForDaemon()
	}
	return c.startDaemon()
}

func (c *Client) startDaemon() error {
	logger.Debug("starting tracker daemon...")

	// Detached: the daemon outlives this editor and logs to its own file
	_, err := os.StartProcess(os.Args[0], []string{os.Args[0], "--daemon"}, &os.ProcAttr{
		Env:   os.Environ(), // carries RECENTEDITS_CONFIG
		Files: []*os.File{nil, nil, nil},
	})
	if err != nil {
		return fmt.Errorf("start tracker daemon: %w", err)
	}
	return c.waitForDaemon()
}

// accepting reports whether a daemon answers on the socket.
func (c *Client) accepting() bool {
	conn, err := net.DialTimeout("unix", c.socketPath, dialTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// waitForDaemon polls the socket until the daemon accepts a connection.
func (c *Client) waitForDaemon() error {
	deadline := time.Now().Add(c.startTimeout)
	for time.Now().Before(deadline) {
		if c.accepting() {
			logger.Debug("tracker daemon accepting on %s", c.socketPath)
			return nil
		}
		time.Sleep(dialTimeout)
	}
	return fmt.Errorf("tracker daemon not accepting on %s after %s", c.socketPath, c.startTimeout)
}
