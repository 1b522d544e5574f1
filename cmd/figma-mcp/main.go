package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nmfisher/figma-mcp/internal/adapter/audit"
	"github.com/nmfisher/figma-mcp/internal/adapter/figma"
	"github.com/nmfisher/figma-mcp/internal/adapter/mcpserver"
	"github.com/nmfisher/figma-mcp/internal/domain"
	"github.com/nmfisher/figma-mcp/internal/infra/config"
	"github.com/nmfisher/figma-mcp/internal/infra/logger"
	"github.com/nmfisher/figma-mcp/internal/infra/tracer"
	"github.com/nmfisher/figma-mcp/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	addr := flag.String("addr", "", "plugin socket listen address (overrides config)")
	flag.Parse()

	if err := run(*cfgPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath, addrOverride string) error {
	// 1. Config
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if addrOverride != "" {
		cfg.Bridge.Addr = addrOverride
	}

	// 2. Logger & Tracer. Stdout carries MCP framing, so both write to
	// stderr or files.
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(ctx)

	// 3. Audit sink
	var auditLogger domain.AuditLogger = domain.NopAuditLogger{}
	if cfg.Audit.Enabled {
		sqliteAudit, err := audit.NewSQLiteAuditLogger(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("audit: %w", err)
		}
		defer sqliteAudit.Close()
		auditLogger = sqliteAudit
	}

	// 4. Plugin bridge and its WebSocket listener
	bridge := figma.NewBridge(cfg.Commands, log)
	pluginSrv := figma.NewServer(bridge, cfg.Bridge, auditLogger, log)

	// 5. Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		if err := pluginSrv.Start(ctx); err != nil {
			log.Error("plugin socket error", "error", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if err := pluginSrv.Stop(shutdownCtx); err != nil {
			log.Error("plugin socket shutdown error", "error", err)
		}
	}()

	// 6. Command service and MCP surface
	commands := usecase.NewCommandService(bridge, cfg.Breaker, auditLogger, log)
	mcpSrv, err := mcpserver.New(commands, log)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	log.Info("figma-mcp starting",
		"plugin_addr", cfg.Bridge.Addr,
		"policy", cfg.Bridge.OnSecondPeer,
		"timeout", cfg.Commands.Timeout,
		"audit", cfg.Audit.Enabled,
	)

	// 7. Serve MCP over stdio until the client hangs up or a signal lands.
	if err := mcpSrv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp serve: %w", err)
	}
	return nil
}
