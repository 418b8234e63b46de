// Command gridsnake runs the Grid Snake server.
//
// It supports two modes:
//  1. "server" (default) runs the HTTP server exposing the REST API, the chat
//     adapter, WebSocket frames and an /mcp HTTP endpoint
//  2. "stdio-mcp" runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, the catalog and results directories, the tick
// interval, debug logging and optional ngrok tunneling.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/gridsnake/api"
	"github.com/wricardo/gridsnake/game/config"
	"github.com/wricardo/gridsnake/game/service"
	"github.com/wricardo/gridsnake/game/session"
	"github.com/wricardo/gridsnake/transport/chat"
	"github.com/wricardo/gridsnake/transport/mcp"
	"github.com/wricardo/gridsnake/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Grid Snake Server"
)

const (
	// resultRetention is how long finished rounds stay in the archive
	resultRetention = 7 * 24 * time.Hour
	pruneInterval   = time.Hour
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Exiting")
	}
}

// newCommand builds the CLI. Flags are shared by every mode.
func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "gridsnake",
		Usage:   "Multiplayer snake rounds over chat, REST, WebSocket and MCP",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "host",
				Value:   "localhost",
				Usage:   "HTTP server host",
				Sources: cli.EnvVars("HOST"),
			},
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "HTTP server port",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "config-dir",
				Usage:   "Directory of message catalogs (built-in texts when empty)",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Name of the message catalog to use instead of the default one",
				Sources: cli.EnvVars("CATALOG"),
			},
			&cli.StringFlag{
				Name:    "results-dir",
				Value:   "results",
				Usage:   "Directory finished rounds are archived in",
				Sources: cli.EnvVars("RESULTS_DIR"),
			},
			&cli.DurationFlag{
				Name:    "tick",
				Value:   session.DefaultTickInterval,
				Usage:   "Pause between two ticks of a round",
				Sources: cli.EnvVars("TICK_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "Enable ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "Ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "Custom ngrok domain (optional)",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			setupLogging(cmd.Bool("debug"))
			return ctx, nil
		},
		Action: runHTTPServer,
		Commands: []*cli.Command{
			{
				Name:    "server",
				Aliases: []string{"http"},
				Usage:   "Run HTTP server with API, WebSocket, and MCP endpoint (default)",
				Action:  runHTTPServer,
			},
			{
				Name:    "stdio-mcp",
				Aliases: []string{"mcp-stdio", "mcp"},
				Usage:   "Run MCP stdio server, reusing a running server or starting an internal one",
				Action:  runStdioMCP,
			},
		},
	}
}

// setupLogging writes human-readable logs to stderr. stdout stays free for
// the MCP stdio transport.
func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp()
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()
}

// appOptions selects the directories and timing of an app
type appOptions struct {
	ConfigDir    string
	Catalog      string
	ResultsDir   string
	TickInterval time.Duration
}

func optionsFrom(cmd *cli.Command) appOptions {
	return appOptions{
		ConfigDir:    cmd.String("config-dir"),
		Catalog:      cmd.String("catalog"),
		ResultsDir:   cmd.String("results-dir"),
		TickInterval: cmd.Duration("tick"),
	}
}

// app holds the wired services of one process
type app struct {
	service  service.GameService
	sessions *session.Manager
	archive  *session.FileArchive
	hub      *websocket.Hub
	bot      *chat.Bot
}

// newApp wires catalogs, the archive, the session manager and its sinks.
// The hub is not running yet.
func newApp(opts appOptions) (*app, error) {
	var catalogs *config.Manager
	if opts.ConfigDir == "" {
		catalogs = config.NewBuiltinManager()
	} else {
		var err error
		catalogs, err = config.NewManager(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog manager: %w", err)
		}
	}

	archive, err := session.NewFileArchive(opts.ResultsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create result archive: %w", err)
	}

	interval := opts.TickInterval
	if interval <= 0 {
		interval = session.DefaultTickInterval
	}

	hub := websocket.NewHub()
	directory := chat.NewDirectory()
	sessions := session.NewManager(archive,
		session.WithTickInterval(interval),
		session.WithResolver(directory),
		session.WithSink(hub),
	)

	var svcOpts []service.Option
	if opts.Catalog != "" {
		svcOpts = append(svcOpts, service.WithCatalogName(opts.Catalog))
	}
	svc := service.NewGameService(sessions, catalogs, archive, svcOpts...)

	bot := chat.NewBot(svc, directory)
	sessions.Subscribe(bot)

	return &app{
		service:  svc,
		sessions: sessions,
		archive:  archive,
		hub:      hub,
		bot:      bot,
	}, nil
}

// handler returns the API server with /mcp mounted next to it
func (a *app) handler(baseURL string) http.Handler {
	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(a.service, a.hub, a.bot))
	mainRouter.Handle("/mcp", mcp.NewClient(baseURL))
	return mainRouter
}

// shutdown aborts running rounds and disconnects WebSocket clients
func (a *app) shutdown(ctx context.Context) {
	if err := a.sessions.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Session shutdown error")
	}
	a.hub.Close()
}

// pruneResults removes archived rounds older than maxAge
func pruneResults(archive service.ResultArchive, maxAge time.Duration) {
	removed, err := archive.Prune(maxAge)
	if err != nil {
		log.Warn().Err(err).Msg("Result pruning finished with errors")
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("Pruned old results")
	}
}

// resultPruneRoutine periodically prunes the archive until ctx is done
func resultPruneRoutine(ctx context.Context, archive service.ResultArchive) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	pruneResults(archive, resultRetention)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneResults(archive, resultRetention)
		}
	}
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled, it also provisions a public tunnel.
func runHTTPServer(ctx context.Context, cmd *cli.Command) error {
	log.Info().Str("version", Version).Str("mode", "server").Msgf("Starting %s", AppName)

	a, err := newApp(optionsFrom(cmd))
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	go a.hub.Run()

	addr := fmt.Sprintf("%s:%d", cmd.String("host"), cmd.Int("port"))
	mainRouter := a.handler(fmt.Sprintf("http://%s", addr))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		resultPruneRoutine(ctx, a.archive)
	}()

	serveErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().Str("addr", addr).Msg("HTTP server listening")
		log.Info().Msgf("REST API: http://%s/api", addr)
		log.Info().Msgf("WebSocket: ws://%s/ws?location=<location>", addr)
		log.Info().Msgf("MCP endpoint: http://%s/mcp", addr)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if cmd.Bool("ngrok") {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), mainRouter)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	a.shutdown(shutdownCtx)

	wg.Wait()
	log.Info().Msg("Server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, authToken, domain string, handler http.Handler) {
	if authToken == "" {
		log.Warn().Msg("Ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN env var)")
		return
	}

	log.Info().Msg("Starting ngrok tunnel...")

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		log.Info().Str("domain", domain).Msg("Using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		log.Error().Err(err).Msg("Failed to start ngrok tunnel")
		return
	}

	ngrokURL := tun.URL()
	log.Info().Str("url", ngrokURL).Msg("Ngrok tunnel established")
	log.Info().Msgf("  REST API (ngrok): %s/api", ngrokURL)
	log.Info().Msgf("  WebSocket (ngrok): %s/ws?location=<location>", ngrokURL)
	log.Info().Msgf("  MCP endpoint (ngrok): %s/mcp", ngrokURL)

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close ngrok tunnel")
		}
	}()

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ngrok server error")
	}
	log.Info().Msg("Ngrok tunnel closed")
}

// externalServerAvailable reports whether a server answers at baseURL
func externalServerAvailable(baseURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL + "/healthz")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

// runStdioMCP runs an MCP stdio server.
// It tries to reuse an external API at host:port; if unavailable, it
// starts an internal HTTP API bound to a random loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	externalURL := fmt.Sprintf("http://%s:%d", cmd.String("host"), cmd.Int("port"))
	log.Info().Str("url", externalURL).Msg("Checking for external API server")

	baseURL := externalURL
	if externalServerAvailable(externalURL) {
		log.Info().Str("url", externalURL).Msg("External API server found, using it for MCP")
	} else {
		log.Info().Msg("No external API server found, starting internal HTTP server")

		a, err := newApp(optionsFrom(cmd))
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		go a.hub.Run()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())

		httpServer := &http.Server{Handler: a.handler(baseURL)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Internal HTTP server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
			a.shutdown(shutdownCtx)
		}()

		log.Info().Str("url", baseURL).Msg("Internal HTTP server started for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Str("api", baseURL).Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
