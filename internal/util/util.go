package util

import (
	"github.com/berfenger/growattext2mqtt/internal/config"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Upstream: config.UpstreamConfig{
			EntryId:       growatt.TestEntryId,
			KnownEntries:  []string{growatt.TestEntryId},
			File:          "testdata/snapshot.json",
			TimeoutMillis: 2000,
		},
		Device: config.DeviceConfig{
			Name:         "Growatt Inverter",
			Manufacturer: "Growatt",
			Model:        "SPA3000 + ShineWiFi-S",
		},
		MQTT: config.MQTTConfig{
			Host:              "localhost",
			Port:              1883,
			BaseTopic:         "growattext",
			HADiscoveryEnable: true,
			HADiscoveryTopic:  "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis: 1000,
		},
		CurrencySymbol: "¥",
		Port:           8080,
		MetricsEnable:  true,
	}
}
