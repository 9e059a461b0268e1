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

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/shiftbrief/internal/api"
	"github.com/kalambet/shiftbrief/internal/cache"
	"github.com/kalambet/shiftbrief/internal/capability"
	"github.com/kalambet/shiftbrief/internal/config"
	"github.com/kalambet/shiftbrief/internal/mesdb"
	"github.com/kalambet/shiftbrief/internal/ollama"
	"github.com/kalambet/shiftbrief/internal/orchestrator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the shiftbrief server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running shiftbrief server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

// stack is the wired application core shared by serve and daily.
type stack struct {
	store        *mesdb.Store
	cache        *cache.Manager
	orchestrator *orchestrator.Orchestrator
}

func (s *stack) Close() {
	if err := s.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing MES store: %v\n", err)
	}
}

// buildStack checks Ollama readiness and wires the store, cache, and
// orchestrator from config.
func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	ollamaClient := ollama.New(cfg.Ollama.BaseURL)
	if err := ollama.EnsureReady(ctx, ollamaClient, cfg.Ollama.Model, os.Stderr); err != nil {
		return nil, err
	}

	store, err := mesdb.Open(cfg.MES.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening MES database: %w", err)
	}

	cm, err := cache.NewManager(cfg.Cache.Dir, cfg.Cache.RetentionDays)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening analysis cache: %w", err)
	}

	analyzer := capability.NewOllamaAnalyzer(ollamaClient, cfg.Ollama.Model, store)
	orch := orchestrator.New(analyzer, orchestrator.Config{
		MaxConcurrent:  cfg.Scheduler.MaxConcurrent,
		DefaultTimeout: cfg.Meeting.DefaultTimeout(),
		QuickTimeout:   cfg.Meeting.QuickTimeout(),
	})

	return &stack{store: store, cache: cm, orchestrator: orch}, nil
}

func setupLogging(level string) {
	logLevel := slog.LevelInfo
	if strings.EqualFold(level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func pidFilePath(cacheDir string) string {
	return filepath.Join(cacheDir, "shiftbrief.pid")
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

func runServer() error {
	fmt.Fprintf(os.Stderr, "shiftbrief version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Refuse to double-start. The health endpoint is the source of truth;
	// the PID file only improves the error message.
	pidPath := pidFilePath(cfg.Cache.Dir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("shiftbrief is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("shiftbrief is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	handler := api.NewHandler(api.Deps{
		Orchestrator: st.orchestrator,
		Cache:        st.cache,
		Store:        st.store,
		Token:        cfg.API.Token,
		Freshness:    cfg.Cache.Freshness(),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server on stdio transport.
	mcpSrv := api.NewMCPServer(api.MCPDeps{
		Orchestrator: st.orchestrator,
		Store:        st.store,
		Cache:        st.cache,
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
		fmt.Fprintf(os.Stderr, "shiftbrief listening on %s\n", addr)
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
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Cache.Dir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("shiftbrief is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop shiftbrief (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to shiftbrief (PID %d)", pid)
	return nil
}
