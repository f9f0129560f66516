package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/moodjournal/api"
	"github.com/wricardo/moodjournal/game/accounts"
	"github.com/wricardo/moodjournal/game/config"
	"github.com/wricardo/moodjournal/game/diary"
	"github.com/wricardo/moodjournal/game/scores"
	"github.com/wricardo/moodjournal/game/service"
	"github.com/wricardo/moodjournal/game/session"
	"github.com/wricardo/moodjournal/game/storage"
	"github.com/wricardo/moodjournal/logging"
	"github.com/wricardo/moodjournal/transport/mcp"
	"github.com/wricardo/moodjournal/transport/websocket"
)

const shutdownTimeout = 10 * time.Second

// app holds the services shared by the serve and mcp commands
type app struct {
	logger   *zap.Logger
	store    storage.Store
	configs  *config.Manager
	sessions *session.Manager
	hub      *websocket.Hub
	service  service.GameService
	accounts *accounts.Service
	journal  *diary.Service
}

// appOptions are the settings newApp needs, read from flags
type appOptions struct {
	ConfigDir string
	Store     string
	StoreDSN  string
}

func appOptionsFrom(cmd *cli.Command) appOptions {
	return appOptions{
		ConfigDir: cmd.String("config-dir"),
		Store:     cmd.String("store"),
		StoreDSN:  cmd.String("store-dsn"),
	}
}

func newLogger(cmd *cli.Command) (*zap.Logger, error) {
	logger, _, err := logging.New(logging.Options{
		Debug:   cmd.Bool("debug"),
		Console: cmd.Bool("log-console"),
	})
	return logger, err
}

// newApp wires storage, presets, sessions and the game service
func newApp(ctx context.Context, opts appOptions, logger *zap.Logger) (*app, error) {
	configs, err := config.NewManager(opts.ConfigDir, config.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	store, err := storage.Open(ctx, opts.Store, opts.StoreDSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", opts.Store, err)
	}

	hub := websocket.NewHub(websocket.WithLogger(logger))
	sessions := session.NewManager(session.WithLogger(logger))

	gameService := service.NewGameService(sessions, configs,
		service.WithScoreStore(scores.NewStore(store, nil)),
		service.WithStateListener(hub.Broadcast),
		service.WithLogger(logger),
	)

	logger.Info("services initialized",
		zap.String("store", opts.Store),
		zap.String("config_dir", opts.ConfigDir),
		zap.Int("presets", configs.Count()))

	return &app{
		logger:   logger,
		store:    store,
		configs:  configs,
		sessions: sessions,
		hub:      hub,
		service:  gameService,
		accounts: accounts.NewService(store),
		journal:  diary.NewService(store, nil),
	}, nil
}

// Close stops every game and releases the store
func (a *app) Close() {
	a.sessions.CloseAll()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close store", zap.Error(err))
	}
}

// handler mounts the REST API and the MCP endpoint. The MCP tools call the
// REST API at baseURL.
func (a *app) handler(baseURL string, apiOpts ...api.Option) http.Handler {
	apiOpts = append([]api.Option{api.WithLogger(a.logger)}, apiOpts...)
	apiServer := api.NewServer(a.service, a.accounts, a.journal, a.hub, apiOpts...)
	mcpClient := mcp.NewClient(baseURL, mcp.WithLogger(a.logger))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/mcp", mcpHandler(mcpClient.GetMCPServer()))
	mainRouter.Handle("/", apiServer.Handler())
	return mainRouter
}

// mcpHandler answers JSON-RPC messages posted to /mcp
func mcpHandler(srv *mcpserver.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := srv.HandleMessage(r.Context(), body)
		if response == nil {
			// notifications have no response
			w.WriteHeader(http.StatusAccepted)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
		}
	}
}

// localURL is the address the process can reach its own server at
func localURL(host string, port int) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server", "http"},
		Usage:   "Run the HTTP server with REST API, WebSocket and MCP endpoint (default)",
		Action:  runServe,
	}
}

// serveFlags configure the HTTP server. They live on the root command so
// that running without a subcommand accepts them too.
func serveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "cors-origins",
			Usage:   "Origins allowed to call the API from a browser (default any)",
			Sources: cli.EnvVars("CORS_ORIGINS"),
		},
		&cli.StringFlag{
			Name:    "static-dir",
			Usage:   "Serve the browser client from this directory",
			Sources: cli.EnvVars("STATIC_DIR"),
		},
		&cli.DurationFlag{
			Name:    "session-max-idle",
			Value:   session.DefaultMaxIdle,
			Usage:   "Remove game sessions idle for longer than this",
			Sources: cli.EnvVars("SESSION_MAX_IDLE"),
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
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.Bool("env_file", envLoaded))

	a, err := newApp(ctx, appOptionsFrom(cmd), logger)
	if err != nil {
		return err
	}
	defer a.Close()

	janitor, err := session.NewJanitor(a.sessions, session.DefaultCleanupInterval, cmd.Duration("session-max-idle"), nil, logger)
	if err != nil {
		return err
	}

	host, port := cmd.String("host"), int(cmd.Int("port"))
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var apiOpts []api.Option
	if origins := cmd.StringSlice("cors-origins"); len(origins) > 0 {
		apiOpts = append(apiOpts, api.WithCORSOrigins(origins))
	}
	if dir := cmd.String("static-dir"); dir != "" {
		apiOpts = append(apiOpts, api.WithStaticDir(dir))
	}
	handler := a.handler(localURL(host, port), apiOpts...)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return janitor.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("websocket", "ws://"+addr+"/ws?session=<session_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			runTunnel(gctx, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), handler, logger)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// runTunnel serves handler on a public ngrok endpoint until ctx is done.
// Tunnel failures are logged and leave the local server running.
func runTunnel(ctx context.Context, authToken, domain string, handler http.Handler, logger *zap.Logger) {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
		logger.Info("using custom ngrok domain", zap.String("domain", domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel")
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	publicURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", publicURL),
		zap.String("api", publicURL+"/api"),
		zap.String("mcp", publicURL+"/mcp"))

	server := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "Run the MCP stdio server",
		Description: "Tools call the REST API at --api-url. When no URL is given the server at " +
			"--host/--port is used if it answers, otherwise an internal API is started on a loopback port.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "REST API the MCP tools call",
				Sources: cli.EnvVars("MCP_API_URL"),
			},
		},
		Action: runMCP,
	}
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	// stdout carries the protocol, logs go to stderr
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync()

	baseURL := cmd.String("api-url")
	if baseURL == "" {
		external := localURL(cmd.String("host"), int(cmd.Int("port")))
		if apiReachable(ctx, external) {
			logger.Info("using external API server", zap.String("url", external))
			baseURL = external
		}
	}

	if baseURL == "" {
		internal, stop, err := startInternalAPI(ctx, appOptionsFrom(cmd), logger)
		if err != nil {
			return err
		}
		defer stop()
		baseURL = internal
	}

	client := mcp.NewClient(baseURL, mcp.WithLogger(logger))
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := mcpserver.ServeStdio(client.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

// apiReachable reports whether a server answers /healthz at baseURL
func apiReachable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// startInternalAPI serves the REST API on a random loopback port and returns
// its URL and a function that stops it
func startInternalAPI(ctx context.Context, opts appOptions, logger *zap.Logger) (string, func(), error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, fmt.Errorf("failed to get available port: %w", err)
	}

	a, err := newApp(ctx, opts, logger)
	if err != nil {
		listener.Close()
		return "", nil, err
	}

	baseURL := "http://" + listener.Addr().String()
	runCtx, cancel := context.WithCancel(ctx)
	httpServer := &http.Server{Handler: a.handler(baseURL)}

	go a.hub.Run(runCtx)
	go func() {
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("internal HTTP server error", zap.Error(err))
		}
	}()
	logger.Info("internal HTTP server started", zap.String("url", baseURL))

	stop := func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		_ = httpServer.Shutdown(shutdownCtx)
		a.Close()
	}
	return baseURL, stop, nil
}

