package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/csgenius/csgenius/internal/api"
	"github.com/csgenius/csgenius/internal/audit"
	"github.com/csgenius/csgenius/internal/config"
	"github.com/csgenius/csgenius/internal/draft"
	"github.com/csgenius/csgenius/internal/extract"
	"github.com/csgenius/csgenius/internal/genai"
	"github.com/csgenius/csgenius/internal/knowledge"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the csgenius server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running csgenius server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show csgenius system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func runDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(base, "csgenius"), nil
}

func pidFilePath() (string, error) {
	dir, err := runDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "csgenius.pid"), nil
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// timeoutGenerator bounds every completion call with a deadline from
// config, since the underlying client itself has no overall timeout.
type timeoutGenerator struct {
	client  *genai.Client
	timeout time.Duration
}

func (g timeoutGenerator) GenerateContent(ctx context.Context, parts []genai.Part, cfg *genai.GenerationConfig) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	return g.client.GenerateContent(ctx, parts, cfg)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "csgenius version %s\n", version)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	token := cfg.Server.Token
	if token == "" {
		token = uuid.New().String()
		printWarning("no API token configured, generated one for this run")
		fmt.Fprintf(os.Stderr, "API token: %s\n", token)
	}

	// Refuse to double-start. The health endpoint is the authority; the
	// PID file only names the culprit.
	pidPath, err := pidFilePath()
	if err != nil {
		return err
	}
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("csgenius is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("csgenius is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the knowledge store.
	store := knowledge.NewStore()
	if cfg.Knowledge.Backup != "" {
		f, err := os.Open(cfg.Knowledge.Backup)
		if err != nil {
			return fmt.Errorf("opening backup: %w", err)
		}
		items, err := knowledge.ReadBackup(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("loading backup: %w", err)
		}
		n := store.Import(items, false)
		slog.Info("loaded backup", "path", cfg.Knowledge.Backup, "items", n)
	}
	if cfg.Knowledge.Seed && store.Len() == 0 {
		store.Import(knowledge.Seed(), false)
		slog.Info("seeded starter entries", "items", store.Len())
	}

	// Build the completion-service contracts.
	client := genai.New(cfg.GenAI.BaseURL, cfg.GenAI.APIKey, cfg.GenAI.Model)
	gen := timeoutGenerator{client: client, timeout: cfg.GenAI.Timeout}
	extractor := extract.New(gen)
	auditor := audit.New(gen)
	drafter := draft.New(gen)

	handler := api.NewHandler(api.Deps{
		Store:     store,
		Extractor: extractor,
		Auditor:   auditor,
		Drafter:   drafter,
		Token:     token,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio, alongside HTTP.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Store:   store,
		Drafter: drafter,
	})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "csgenius listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	pidPath, err := pidFilePath()
	if err != nil {
		return err
	}
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("csgenius is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop csgenius (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to csgenius (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Model", "%s", cfg.GenAI.Model)
	if cfg.GenAI.APIKey == "" {
		printStatus("API key", "not configured")
	} else {
		printStatus("API key", "configured")
	}

	// Show knowledge counts if the server is up and a token is at hand.
	if err == nil && resp.StatusCode == 200 && cfg.Server.Token != "" {
		ac := &apiClient{
			baseURL:    serverURL,
			token:      cfg.Server.Token,
			httpClient: client,
		}
		statsResp, statsErr := ac.get(context.Background(), "/knowledge/stats")
		if statsErr == nil {
			var stats knowledge.Statistics
			if decodeJSON(statsResp, &stats) == nil {
				printStatus("Knowledge items", "%d", stats.Total)
				printStatus("Added this week", "%d", stats.AddedThisWeek)
			}
		}
	}

	return nil
}
