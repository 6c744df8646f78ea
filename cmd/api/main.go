package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/growattext2mqtt/internal/adapter/actor"
	"github.com/berfenger/growattext2mqtt/internal/adapter/metrics"
	"github.com/berfenger/growattext2mqtt/internal/adapter/schedule"
	"github.com/berfenger/growattext2mqtt/internal/config"
	"github.com/berfenger/growattext2mqtt/internal/core/actor"
	"github.com/berfenger/growattext2mqtt/internal/core/service"
	"github.com/berfenger/growattext2mqtt/internal/server"
	"github.com/berfenger/growattext2mqtt/internal/util/actorutil"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// upstream snapshot reader
	reader, err := snapshotReader(cfg, logger)
	if err != nil {
		slog.Error("upstream setup failed", "error", err)
		os.Exit(1)
	}

	deriver := service.NewReadingDeriver(cfg.CurrencySymbol)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, deriver, snapshotActorProvider(cfg, reader, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	if cfg.MQTT.HADiscoveryEnable {
		job := schedule.NewDiscoveryRefreshJob(ctx, pid, logger)
		if _, err := schedule.StartDiscoveryRefresh(jobCtx, cfg.MQTT.HADiscoveryRefreshCron, job); err != nil {
			logger.Error("discovery refresh job not scheduled", zap.Error(err))
		}
	}

	var gatherer prometheus.Gatherer
	if cfg.MetricsEnable {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			metrics.NewCollector(cfg.Upstream.EntryId, metrics.ActorReadingsFetcher(ctx, pid), 5*time.Second, logger),
		)
		gatherer = registry
	}

	server := server.NewServer(*cfg, ctx, pid, gatherer)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	cancelJobs()
	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => GROWATTEXT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("GROWATTEXT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("growattext")
	// nested keys: upstream.entry_id => GROWATTEXT_UPSTREAM_ENTRY_ID
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// upstream entry
	entryId, err := config.CheckEntry(cfg.Upstream.EntryId, cfg.Upstream.KnownEntries)
	if err != nil {
		return nil, err
	}
	cfg.Upstream.EntryId = entryId
	if err := config.CheckUpstreamSource(cfg.Upstream); err != nil {
		return nil, err
	}

	// check bounds
	if cfg.MonitorConfig.PollIntervalMillis > 0 && cfg.MonitorConfig.PollIntervalMillis < 1000 {
		return nil, errors.New("config param monitor.poll_interval_millis should be >= 1000 or 0 to disable polling")
	}
	if cfg.Upstream.TimeoutMillis < 100 {
		return nil, errors.New("config param upstream.timeout_millis should be >= 100")
	}

	return &cfg, nil
}

func entryInfo(cfg *config.Config) growatt.EntryInfo {
	return growatt.EntryInfo{
		EntryId:      cfg.Upstream.EntryId,
		Title:        cfg.Upstream.EntryTitle,
		Name:         cfg.Device.Name,
		Manufacturer: cfg.Device.Manufacturer,
		Model:        cfg.Device.Model,
	}
}

// snapshotReader prefers the HTTP source and falls back to a snapshot file.
func snapshotReader(cfg *config.Config, logger *zap.Logger) (growatt.SnapshotReader, error) {
	timeout := time.Duration(cfg.Upstream.TimeoutMillis) * time.Millisecond
	if cfg.Upstream.Url != "" {
		return growatt.CreateHTTPSnapshotReader(cfg.Upstream.Url, cfg.Upstream.Token, entryInfo(cfg), timeout,
			logger.With(zap.String("reader", "http")))
	}
	return growatt.CreateFileSnapshotReader(cfg.Upstream.File, entryInfo(cfg))
}

func snapshotActorProvider(cfg *config.Config, reader growatt.SnapshotReader, logger *zap.Logger) actor.SnapshotActorProvider {
	timeout := time.Duration(cfg.Upstream.TimeoutMillis) * time.Millisecond
	return func() *adactor.SnapshotActor {
		return adactor.NewSnapshotActor(reader, timeout, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("upstream.entry_id", "")
	viper.SetDefault("upstream.entry_title", "Growatt")
	viper.SetDefault("upstream.known_entries", []string{})
	viper.SetDefault("upstream.url", "")
	viper.SetDefault("upstream.file", "")
	viper.SetDefault("upstream.token", "")
	viper.SetDefault("upstream.timeout_millis", 10000)
	viper.SetDefault("device.name", "Growatt Inverter")
	viper.SetDefault("device.manufacturer", "Growatt")
	viper.SetDefault("device.model", "SPA3000 + ShineWiFi-S")
	viper.SetDefault("mqtt.host", "localhost")
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "growattext")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("mqtt.ha_discovery_refresh_cron", schedule.DEFAULT_DISCOVERY_REFRESH_CRON)
	viper.SetDefault("monitor.poll_interval_millis", 30000)
	viper.SetDefault("currency_symbol", "¥")
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
	viper.SetDefault("metrics_enable", true)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Upstream.Token = "*redacted*"
	slog.Info("Using", "config", cfg)
}
