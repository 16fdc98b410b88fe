package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"recentedits/logger"
	"recentedits/tracker"
)

type Config struct {
	LogLevel               string `json:"log_level"`     // trace, debug, info, warn, error
	ContextLines           *int   `json:"context_lines"` // unset means text.DefaultContextLines
	Strategy               string `json:"strategy"`
	MaxWindowAgeMs         int    `json:"max_window_age_ms"`
	MaxWindowChanges       int    `json:"max_window_changes"`
	MaxDocuments           int    `json:"max_documents"`
	MaxDiffTokens          int    `json:"max_diff_tokens"`
	DebugImmediateShutdown bool   `json:"debug_immediate_shutdown"`
}

// TrackerConfig overlays the configured values on the tracker defaults.
func (c Config) TrackerConfig() tracker.Config {
	cfg := tracker.DefaultConfig()
	if c.Strategy != "" {
		cfg.Strategy = c.Strategy
	}
	if c.ContextLines != nil {
		cfg.ContextLines = *c.ContextLines
	}
	if c.MaxWindowAgeMs > 0 {
		cfg.MaxWindowAge = time.Duration(c.MaxWindowAgeMs) * time.Millisecond
	}
	if c.MaxWindowChanges > 0 {
		cfg.MaxWindowChanges = c.MaxWindowChanges
	}
	if c.MaxDocuments > 0 {
		cfg.MaxDocuments = c.MaxDocuments
	}
	cfg.MaxDiffTokens = c.MaxDiffTokens
	return cfg
}

type ServerMode string

const (
	ModeDaemon ServerMode = "daemon"
	ModeClient ServerMode = "client"
	ModeReplay ServerMode = "replay"
)

// Setup logger to log to a file in the same directory as the executable
// Caller must defer logger.Close()
func setupLogger(logLevel string) *logger.LimitedLogger {
	f, err := os.OpenFile(runtimePath("recentedits.log"), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}

	level := logger.ParseLogLevel(logLevel)
	limitedLogger := logger.NewLimitedLogger(f, level)
	log.SetOutput(limitedLogger)
	return limitedLogger
}

// runtimePath returns the path of name next to the executable.
func runtimePath(name string) string {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("error getting executable path: %v", err)
	}
	return filepath.Join(filepath.Dir(execPath), name)
}

func getSocketPath() string { return runtimePath("recentedits.sock") }

func getPidPath() string { return runtimePath("recentedits.pid") }

func isDaemonRunning() (bool, int) {
	pidPath := getPidPath()
	data, err := os.ReadFile(pidPath)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0
	}

	// Check if process is still running
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	// On Unix, Signal(0) checks if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil, pid
}

// parseConfig decodes the JSON config. An empty string yields the defaults.
func parseConfig(raw string) (Config, error) {
	var config Config
	if raw == "" {
		return config, nil
	}
	if err := json.Unmarshal([]byte(raw), &config); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	return config, nil
}

func loadConfig() Config {
	config, err := parseConfig(os.Getenv("RECENTEDITS_CONFIG"))
	if err != nil {
		log.Fatalf("%v", err)
	}
	return config
}

func runDaemon() {
	config := loadConfig()

	// Default to info level if not specified
	logLevel := config.LogLevel
	if logLevel == "" {
		logLevel = "info"
	}

	limitedLogger := setupLogger(logLevel)
	defer limitedLogger.Close()
	logger.Info("config: %+v", config.TrackerConfig())

	daemon, err := NewDaemon(config)
	if err != nil {
		log.Fatalf("error creating daemon: %v", err)
	}

	if err := daemon.Start(); err != nil {
		log.Fatalf("error starting daemon: %v", err)
	}
}

func runClient() {
	client := NewClient()

	if err := client.EnsureDaemonRunning(); err != nil {
		log.Fatalf("error ensuring daemon is running: %v", err)
	}

	if err := client.Connect(); err != nil {
		log.Fatalf("error connecting to daemon: %v", err)
	}
}

func main() {
	var mode ServerMode = ModeClient

	// Check command line arguments
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--daemon":
			mode = ModeDaemon
		case "replay":
			mode = ModeReplay
		}
	}

	switch mode {
	case ModeDaemon:
		runDaemon()
	case ModeClient:
		runClient()
	case ModeReplay:
		if err := runReplay(os.Args[2:], loadConfig(), os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "replay: %v\n", err)
			os.Exit(1)
		}
	}
}
