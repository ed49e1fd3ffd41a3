package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PocketRelay/Server-sub000/internal/assoc"
	"github.com/PocketRelay/Server-sub000/internal/config"
	"github.com/PocketRelay/Server-sub000/internal/directory"
	"github.com/PocketRelay/Server-sub000/internal/gamemanager"
	"github.com/PocketRelay/Server-sub000/internal/handlers"
	"github.com/PocketRelay/Server-sub000/internal/matchmaking"
	"github.com/PocketRelay/Server-sub000/internal/persistence"
	"github.com/PocketRelay/Server-sub000/internal/retriever"
	"github.com/PocketRelay/Server-sub000/internal/router"
	"github.com/PocketRelay/Server-sub000/internal/session"
	"github.com/PocketRelay/Server-sub000/internal/staticcontent"
	"github.com/PocketRelay/Server-sub000/internal/tunnel"
)

const ConfigPath = "config/gameserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := ConfigPath
	if p := os.Getenv("GAMESERVER_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))
	slog.Info("gameserver starting", "bind", cfg.BindAddress, "port", cfg.Port)

	database, err := persistence.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	if err := persistence.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	players := persistence.NewPlayerRepository(database.Pool())
	legal := staticcontent.New(cfg.Static.Dir)

	var originRetriever handlers.Retriever
	if cfg.Origin.Enabled {
		originRetriever = retriever.New(cfg.Origin.BaseURL, cfg.Origin.HTTPTimeout)
		slog.Info("origin retriever enabled", "base_url", cfg.Origin.BaseURL)
	}

	sessionTokens, err := handlers.NewSessionSigner()
	if err != nil {
		return fmt.Errorf("building session signer: %w", err)
	}
	assocSigner, err := assoc.NewSigner()
	if err != nil {
		return fmt.Errorf("building association signer: %w", err)
	}

	games := gamemanager.New()
	queue := matchmaking.New()
	dir := directory.New()
	notify := handlers.NewFactory(assocSigner)
	relay := tunnel.New(assocSigner)

	registry := router.NewRegistry()
	r := router.New(registry, cfg.MaxPacketBody)
	handlers.RegisterAll(r, registry, handlers.Deps{
		Games:     games,
		Queue:     queue,
		Directory: dir,
		Players:   players,
		Retriever: originRetriever,
		Legal:     legal,
		Tokens:    sessionTokens,
		Notify:    notify,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runTCPListener(gctx, cfg, r, dir, notify)
	})

	g.Go(func() error {
		return runUDPTunnel(gctx, cfg, relay)
	})

	g.Go(func() error {
		tunnel.RunKeepAlive(gctx, relay)
		return nil
	})

	g.Go(func() error {
		return runHTTPTunnel(gctx, cfg, relay, assocSigner)
	})

	g.Go(func() error {
		matchmaking.RunSweeper(gctx, queue, cfg.MatchmakingTimeout, func(entry *matchmaking.Entry) {
			slog.Info("matchmaking entry expired", "player", entry.Player.Player.ID)
			if entry.Player.Handle == nil {
				return
			}
			if err := entry.Player.Handle.Enqueue(notify.MatchmakingFailed(entry.Player.Player.ID)); err != nil {
				slog.Warn("matchmaking failed notify undeliverable", "player", entry.Player.Player.ID, "error", err)
			}
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// runTCPListener accepts framed-packet connections and hands each off to
// the router's per-session loop, grounded on the teacher's own accept-loop
// shape in cmd/gameserver/main.go's server.Run.
func runTCPListener(ctx context.Context, cfg config.Server, r *router.Router, dir *directory.Directory, notify *handlers.Factory) error {
	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()

	context.AfterFunc(ctx, func() { ln.Close() })

	slog.Info("tcp listener started", "addr", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Temporary() {
				continue
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		s := session.New(dir.NextSessionID(), conn, "tcp", cfg.BindAddress, uint16(cfg.Port))
		s.SetNotifyFactory(notify)
		go r.RunSession(ctx, s)
	}
}

func runUDPTunnel(ctx context.Context, cfg config.Server, relay *tunnel.Relay) error {
	addr := &net.UDPAddr{IP: net.ParseIP(cfg.BindAddress), Port: cfg.TunnelUDPPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listening on udp %s: %w", addr, err)
	}
	defer conn.Close()
	context.AfterFunc(ctx, func() { conn.Close() })

	slog.Info("udp tunnel listener started", "addr", addr)
	tunnel.RunUDPListener(conn, relay)
	return nil
}

func runHTTPTunnel(ctx context.Context, cfg config.Server, relay *tunnel.Relay, signer *assoc.Signer) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/tunnel", func(w http.ResponseWriter, r *http.Request) {
		tunnel.ServeWebSocketTunnel(w, r, relay, func(token string) []byte {
			return []byte(token)
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.TunnelHTTPPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http tunnel listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
