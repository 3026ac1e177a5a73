// ABOUTME: Entry point for the coven-console terminal client
// ABOUTME: Connects to a conversation backend and renders the live timeline

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/2389/coven-console/internal/config"
	"github.com/2389/coven-console/internal/conn"
	"github.com/2389/coven-console/internal/metrics"
	"github.com/2389/coven-console/internal/session"
	"github.com/2389/coven-console/internal/timeline"
	"github.com/2389/coven-console/internal/webui"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
  ___ _____   _____ _ __         ___ ___  _ __  ___  ___ | | ___
 / __/ _ \ \ / / _ \ '_ \ _____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| (_| (_) \ V /  __/ | | |_____| (_| (_) | | | \__ \ (_) | |  __/
 \___\___/ \_/ \___|_| |_|      \___\___/|_| |_|___/\___/|_|\___|
`

// getConfigPath returns the path to the console config file.
// Priority: COVEN_CONSOLE_CONFIG env var > XDG_CONFIG_HOME/coven/console.yaml > ~/.config/coven/console.yaml
func getConfigPath() string {
	if envPath := os.Getenv("COVEN_CONSOLE_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "coven", "console.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: coven-console <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  watch   Connect to the backend and follow the timeline")
		fmt.Println("  init    Create a new config file interactively")
		fmt.Println("  reset   Forget the persisted resume cursor")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "watch":
		err = runWatch(ctx)
	case "init":
		err = runInit()
	case "reset":
		err = runReset(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runWatch(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:       %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Backend:      %s\n", cfg.Backend.URL)
	green.Print("    ▶ ")
	fmt.Printf("Conversation: %s\n", cfg.Backend.ConversationID)
	if cfg.Metrics.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Debug HTTP:   http://%s\n", cfg.Metrics.Addr)
	}
	fmt.Println()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	var sessions *session.Store
	if cfg.Session.Path != "" {
		sessions, err = session.Open(cfg.Session.Path)
		if err != nil {
			return fmt.Errorf("opening session store: %w", err)
		}
		defer sessions.Close()
	}

	broadcaster := timeline.NewBroadcaster(logger)
	defer broadcaster.Close()
	correlator := timeline.NewCorrelator(timeline.NewStore(), broadcaster, m, logger)

	manager := conn.NewManager(correlator, conn.Options{
		URL:            cfg.Backend.URL,
		ConversationID: cfg.Backend.ConversationID,
		Settings:       cfg.Backend.Settings,
		Sessions:       sessions,
		RateWindow:     cfg.Rate.Window,
		RateBurst:      cfg.Rate.Burst,
		Metrics:        m,
		Logger:         logger,
	})

	if cfg.Metrics.Enabled {
		debug := webui.New(webui.Config{
			Addr:        cfg.Metrics.Addr,
			MetricsPath: cfg.Metrics.Path,
		}, manager, registry)
		go func() {
			if err := debug.Run(ctx); err != nil {
				logger.Error("debug server stopped", "error", err)
			}
		}()
	}

	entryCh, _ := broadcaster.Subscribe(ctx)
	renderer := newRenderer(os.Stdout)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for e := range entryCh {
			renderer.render(e)
		}
	}()

	manager.Connect(true, conn.Credentials{
		Token:       cfg.Backend.Token,
		GitHubToken: cfg.Backend.GitHubToken,
	})

	go readInput(ctx, manager, correlator)

	<-ctx.Done()
	manager.Connect(false, conn.Credentials{})
	// Let the debounced teardown run so the transport closes cleanly.
	time.Sleep(conn.DefaultTeardownDelay + 50*time.Millisecond)
	broadcaster.Close()
	wg.Wait()
	return nil
}

// readInput forwards stdin lines to the backend as user messages. Lines
// starting with "/" are local commands.
func readInput(ctx context.Context, manager *conn.Manager, correlator *timeline.Correlator) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "/status":
			fmt.Printf("status=%s last_event_id=%d loading=%v entries=%d\n",
				manager.Status(), manager.LastEventID(),
				manager.IsLoadingMessages(), len(manager.Events()))
		case "/clear":
			correlator.Clear()
			fmt.Println("timeline cleared")
		default:
			manager.SendUserMessage(line)
		}
	}
}

func runInit() error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Backend URL (e.g. wss://backend.example.com/events): ")
	backendURL, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	backendURL = strings.TrimSpace(backendURL)
	if backendURL == "" {
		return fmt.Errorf("backend URL is required")
	}

	fmt.Print("Conversation ID: ")
	conversationID, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return fmt.Errorf("conversation ID is required")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	content := fmt.Sprintf(`backend:
  url: %q
  conversation_id: %q
  token: "${COVEN_TOKEN}"
  github_token: "${GITHUB_TOKEN}"

session:
  path: "%s"

logging:
  level: "info"
  format: "text"

metrics:
  enabled: false
  addr: "127.0.0.1:9090"
`, backendURL, conversationID, defaultSessionPath())

	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Created %s\n", configPath)
	fmt.Println("Set COVEN_TOKEN in your environment, then run: coven-console watch")
	return nil
}

// defaultSessionPath returns the default resume-cursor database location.
// Priority: XDG_DATA_HOME/coven > ~/.local/share/coven
func defaultSessionPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "console-session.db" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "coven", "console-session.db")
}

func runReset(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Session.Path == "" {
		return fmt.Errorf("session persistence is disabled; nothing to reset")
	}

	sessions, err := session.Open(cfg.Session.Path)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer sessions.Close()

	if err := sessions.Reset(ctx, cfg.Backend.ConversationID); err != nil {
		return err
	}

	fmt.Printf("cursor reset for %s\n", cfg.Backend.ConversationID)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	buf.WriteString(r.Message)

	// Handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Fprint(os.Stderr, buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}
