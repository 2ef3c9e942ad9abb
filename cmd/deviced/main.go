package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"deviced/internal/config"
	"deviced/internal/device"
	"deviced/internal/httpapi"
	"deviced/internal/registry"
)

func main() {
	// Flags with environment variable defaults
	defaultAddr := ":8080"
	if v := os.Getenv("DEVICED_ADDR"); v != "" {
		defaultAddr = v
	}
	defaultManifests := "~/networks"
	if v := os.Getenv("DEVICED_MANIFESTS_DIR"); v != "" {
		defaultManifests = v
	}
	addr := flag.String("addr", defaultAddr, "HTTP listen address, e.g. :8080")
	manifestsDir := flag.String("manifests-dir", defaultManifests, "Directory to scan for network manifests (*.yaml, *.json, *.toml)")
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override file values")
	deviceMemoryKB := flag.Uint64("device-memory-kb", 0, "Device memory budget in kilobytes (0=default)")
	slots := flag.Int("slots", 0, "Execution buffer slots per network (0=default)")
	acquireWaitMS := flag.Int("acquire-wait-ms", 0, "How long a run waits for a free slot before rejecting (0=reject immediately)")
	drainTimeoutMS := flag.Int("drain-timeout-ms", 0, "How long eviction waits for in-flight runs (0=default)")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	corsEnabled := flag.Bool("cors", false, "Enable CORS middleware")
	corsOrigins := flag.String("cors-origins", "*", "Comma-separated allowed CORS origins")
	flag.Parse()

	cfg := config.Config{}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			stderrFatal("failed to load config: " + err.Error())
		}
		cfg = loaded
	}
	// Flags take precedence over file values when explicitly set.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["addr"] || cfg.Addr == "" {
		cfg.Addr = *addr
	}
	if set["manifests-dir"] || cfg.ManifestsDir == "" {
		cfg.ManifestsDir = *manifestsDir
	}
	if set["device-memory-kb"] {
		cfg.DeviceMemoryKB = *deviceMemoryKB
	}
	if set["slots"] {
		cfg.SlotsPerNetwork = *slots
	}
	if set["acquire-wait-ms"] {
		cfg.AcquireWaitMS = *acquireWaitMS
	}
	if set["drain-timeout-ms"] {
		cfg.DrainTimeoutMS = *drainTimeoutMS
	}
	if set["log-level"] || cfg.LogLevel == "" {
		cfg.LogLevel = *logLevel
	}
	if set["cors"] {
		cfg.CORSEnabled = *corsEnabled
	}
	if set["cors-origins"] || len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = splitCSV(*corsOrigins)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()

	cat, err := registry.LoadDir(cfg.ManifestsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.ManifestsDir).Msg("failed to load network manifests")
	}
	log.Info().Int("networks", cat.Len()).Str("dir", cfg.ManifestsDir).Msg("manifest catalog loaded")

	mgr := device.New(device.Config{
		DeviceMemoryKB:  cfg.DeviceMemoryKB,
		SlotsPerNetwork: cfg.SlotsPerNetwork,
		AcquireWait:     time.Duration(cfg.AcquireWaitMS) * time.Millisecond,
		DrainTimeout:    time.Duration(cfg.DrainTimeoutMS) * time.Millisecond,
		Logger:          log,
	})

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)

	mux := httpapi.NewMux(mgr, cat)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("deviced listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("device manager close error")
	}
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func stderrFatal(msg string) {
	os.Stderr.WriteString(msg + "\n")
	os.Exit(1)
}
