// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/vibechef/internal/api/connect"
	"github.com/osa030/vibechef/internal/api/playerv1/playerv1connect"
	"github.com/osa030/vibechef/internal/app/catalog"
	"github.com/osa030/vibechef/internal/app/filter"
	"github.com/osa030/vibechef/internal/app/playback"
	"github.com/osa030/vibechef/internal/app/player"
	"github.com/osa030/vibechef/internal/app/provider"
	"github.com/osa030/vibechef/internal/infra/audio"
	"github.com/osa030/vibechef/internal/infra/config"
	"github.com/osa030/vibechef/internal/infra/logger"
	"github.com/osa030/vibechef/internal/infra/spotify"
)

var (
	app        = kingpin.New("vibechef-server", "vibechef player server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
	output     = app.Flag("output", "Audio output, overrides the config (speaker or simulated)").Enum("speaker", "simulated")

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")

	// list-samples command
	listSamplesCmd = app.Command("list-samples", "List the built-in sample catalog and exit")
)

// closableSource is a playback source that holds audio resources.
type closableSource interface {
	playback.Source
	Close()
}

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	switch command {
	case listFiltersCmd.FullCommand():
		printFilters()
		return
	case listSamplesCmd.FullCommand():
		printSamples()
		return
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}

	// Initialize logger, command-line flags take precedence
	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	zlog.Info().Msgf("Loaded config from %s", *configPath)

	if *output != "" {
		cfg.Audio.Output = *output
	}

	// Run server (defer ensures shutdown hook is called)
	err = run(cfg)
	_ = closeLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	// Validate filter config
	if err := validateFilterConfig(cfg); err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	ctx := context.Background()

	// Create Spotify client when a provider needs it
	var spotifyClient provider.SpotifyClient
	if cfg.UsesSpotify() {
		client, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}

		// Validate playlist existence
		if err := validatePlaylists(ctx, cfg, client); err != nil {
			return fmt.Errorf("playlist validation failed: %w", err)
		}
		spotifyClient = client
	}

	// Create audio output
	src, err := newSource(cfg)
	if err != nil {
		return fmt.Errorf("failed to create audio output: %w", err)
	}
	defer src.Close()

	// Create player
	playerMgr, err := player.NewManager(cfg, src, spotifyClient)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	// Create HTTP mux
	mux := http.NewServeMux()

	// Register services
	if cfg.Control.Token == "" {
		zlog.Warn().Msg("No control token configured, control RPCs are open")
	}
	playerPath, playerHandler := playerv1connect.NewPlayerServiceHandler(
		apiconnect.NewPlayerService(playerMgr),
		connect.WithInterceptors(apiconnect.NewControlAuthInterceptor(cfg.Control.Token)),
	)
	mux.Handle(playerPath, playerHandler)

	// Determine server address
	serverAddr := cfg.Server.Addr
	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           h2c.NewHandler(mux, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s output=%s", serverAddr, cfg.Audio.Output)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		serveErr = fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Close player first to terminate active streams
	playerMgr.Close()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return serveErr
}

// newSource creates the configured audio output.
func newSource(cfg *config.Config) (closableSource, error) {
	prober := audio.NewProber(audio.ProberConfig{
		Timeout:  time.Duration(cfg.Audio.ProbeTimeoutMs) * time.Millisecond,
		MaxBytes: int64(cfg.Audio.MaxDownloadMB) << 20,
	})

	switch cfg.Audio.Output {
	case "speaker":
		return audio.NewSpeakerSource(audio.SpeakerConfig{
			SampleRate: cfg.Audio.SampleRate,
			Buffer:     time.Duration(cfg.Audio.BufferMs) * time.Millisecond,
			Prober:     prober,
		})
	default:
		return audio.NewSimulatedSource(audio.SimulatedConfig{
			Duration: time.Duration(cfg.Audio.SimulatedDurationSec) * time.Second,
			Prober:   prober,
		}), nil
	}
}

// printFilters prints available filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// printSamples prints the sample catalog used when no tracks are loaded.
func printSamples() {
	fmt.Println("Sample Catalog:")
	for i, t := range catalog.Samples().Tracks() {
		fmt.Printf("  %d. %s - %s\n     %s\n", i, t.Title, t.Artist, t.SourceURL)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			// Some filters are created with dependencies, skip validation
			continue
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return fmt.Errorf("filter %s: %w", filterName, err)
		}
	}

	return nil
}

// validatePlaylists validates that configured playlist providers point at existing playlists.
// This uses lightweight checks to avoid fetching all tracks during startup.
// It includes retry logic to handle transient errors during startup.
func validatePlaylists(ctx context.Context, cfg *config.Config, spotifyClient *spotify.Client) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var errs []string

	// Helper function to validate a single playlist with retry
	validate := func(name, url string) error {
		zlog.Info().Msgf("Validating %s playlist: url=%s", name, url)

		var lastErr error
		for i := 0; i < maxRetries; i++ {
			if i > 0 {
				delay := baseDelay * time.Duration(1<<uint(i-1))
				zlog.Info().Msgf("Retrying %s playlist validation in %v...", name, delay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			if err := spotifyClient.CheckPlaylistExists(ctx, url); err != nil {
				lastErr = err
				zlog.Warn().Msgf("Failed to validate %s playlist (attempt %d/%d): %v", name, i+1, maxRetries, err)
				continue
			}

			zlog.Info().Msgf("%s playlist validated successfully", name)
			return nil
		}
		return fmt.Errorf("failed after %d attempts: %v", maxRetries, lastErr)
	}

	for _, p := range cfg.Generator.Providers {
		if p.Type != "playlist" {
			continue
		}
		url, _ := p.Settings["playlist_url"].(string)
		if url == "" {
			// Reported by the provider factory
			continue
		}
		if err := validate(p.DisplayName, url); err != nil {
			errs = append(errs, fmt.Sprintf("%s (%s): %v", p.DisplayName, url, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("playlist validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
