package config

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

var (
	ErrNoUpstreamEntries = errors.New("no upstream entries")
	ErrInvalidEntry      = errors.New("invalid entry")
	ErrNoUpstreamSource  = errors.New("upstream.url or upstream.file must be set")
)

type Config struct {
	LogLevel       zapcore.Level
	Upstream       UpstreamConfig `mapstructure:"upstream"`
	Device         DeviceConfig   `mapstructure:"device"`
	MQTT           MQTTConfig     `mapstructure:"mqtt"`
	MonitorConfig  MonitorConfig  `mapstructure:"monitor"`
	CurrencySymbol string         `mapstructure:"currency_symbol"`
	Port           uint           `mapstructure:"port"`
	HttpLog        bool           `mapstructure:"http_log"`
	MetricsEnable  bool           `mapstructure:"metrics_enable"`
}

// UpstreamConfig selects the monitoring integration entry whose snapshot is read.
type UpstreamConfig struct {
	EntryId       string   `mapstructure:"entry_id"`
	EntryTitle    string   `mapstructure:"entry_title"`
	KnownEntries  []string `mapstructure:"known_entries"`
	Url           string
	File          string
	Token         string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type DeviceConfig struct {
	Name         string
	Manufacturer string
	Model        string
}

type MonitorConfig struct {
	PollIntervalMillis uint32 `mapstructure:"poll_interval_millis"`
}

type MQTTConfig struct {
	Host                   string
	Port                   int
	Username               string
	Password               string
	BaseTopic              string `mapstructure:"base_topic"`
	HADiscoveryEnable      bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic       string `mapstructure:"ha_discovery_topic"`
	HADiscoveryRefreshCron string `mapstructure:"ha_discovery_refresh_cron"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// CheckEntry validates the selected entry against the entries the upstream
// integration knows about. An empty selection picks the only known entry.
func CheckEntry(entryId string, knownEntries []string) (string, error) {
	if len(knownEntries) == 0 {
		if entryId == "" {
			return "", ErrNoUpstreamEntries
		}
		return entryId, nil
	}
	if entryId == "" {
		if len(knownEntries) == 1 {
			return knownEntries[0], nil
		}
		return "", fmt.Errorf("%w: upstream.entry_id is required with %d known entries", ErrInvalidEntry, len(knownEntries))
	}
	if !slices.Contains(knownEntries, entryId) {
		return "", fmt.Errorf("%w: %s", ErrInvalidEntry, entryId)
	}
	return entryId, nil
}

func CheckUpstreamSource(cfg UpstreamConfig) error {
	if cfg.Url == "" && cfg.File == "" {
		return ErrNoUpstreamSource
	}
	return nil
}
