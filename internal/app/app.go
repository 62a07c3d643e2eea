package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"roost/internal/app/bootstrap"
	"roost/internal/app/server"
	"roost/internal/app/version"
	"roost/internal/config"
	"roost/internal/support"
)

const defaultPort = 8080

type options struct {
	port         int
	settingsPath string
	debug        bool
}

func Run() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		return err
	}
	configureLogging(opts.debug)

	build := version.Get()
	log.Info("Starting roost", "version", build.BuildVersion, "built_at", build.BuiltAt)

	rt, err := bootstrap.Setup(opts.settingsPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn("error during shutdown", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go reloadOnHangup(ctx, opts.settingsPath)
	rt.StartRoutines(ctx)

	cfg := config.GetConfig()
	srv := server.New(server.Deps{
		Pool:              rt.Pool,
		Managers:          rt.Managers,
		Resolver:          rt.Resolver,
		Gatherer:          rt.Registry,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             int(cfg.API.Burst),
	})

	return srv.ListenAndServe(ctx, opts.port)
}

func parseOptions(args []string) (options, error) {
	settingsPath := support.GetEnv("ROOST_CONFIG", "")
	if settingsPath == "" {
		settingsPath = config.DefaultSettingsPath
	}

	fs := flag.NewFlagSet("roost", flag.ContinueOnError)
	portFlag := fs.Int("port", defaultPort, "Port for the API server")
	settingsFlag := fs.String("config", settingsPath, "Path to the settings file (.json or .toml)")
	debugFlag := fs.Bool("debug", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	return options{
		port:         resolvePort("PORT", "ROOST_PORT", *portFlag),
		settingsPath: *settingsFlag,
		debug:        *debugFlag,
	}, nil
}

func configureLogging(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
		return
	}

	raw := strings.TrimSpace(support.GetEnv("LOG_LEVEL", ""))
	if raw == "" {
		raw = "info"
	}
	level, err := log.ParseLevel(raw)
	if err != nil {
		log.Warn("invalid LOG_LEVEL, using info", "value", raw)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// reloadOnHangup re-reads the settings file on SIGHUP. Interval changes reach the routines through config listeners.
func reloadOnHangup(ctx context.Context, settingsPath string) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
			if err := config.ReadSettings(settingsPath); err != nil {
				log.Error("Settings reload failed, keeping previous settings", "path", settingsPath, "error", err)
				continue
			}
			log.Info("Settings reloaded", "path", settingsPath)
		}
	}
}

func resolvePort(primaryEnv, legacyEnv string, fallback int) int {
	if port := readPort(primaryEnv); port != 0 {
		return port
	}
	if port := readPort(legacyEnv); port != 0 {
		return port
	}
	return fallback
}

func readPort(envKey string) int {
	raw := os.Getenv(envKey)
	if raw == "" {
		return 0
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port <= 0 || port > 65535 {
		log.Warn("invalid port override", "env", envKey, "value", raw)
		return 0
	}
	return port
}
