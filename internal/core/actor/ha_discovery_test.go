package actor

import (
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/growattext2mqtt/internal/adapter/actor"
	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/util"
	"github.com/berfenger/growattext2mqtt/internal/util/actorutil"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func collectDiscovery(mqttActor *adactor.MQTTActor, wait time.Duration) []string {
	var topics []string
	timeout := time.After(wait)
	for {
		select {
		case msg := <-mqttActor.Published():
			if strings.HasPrefix(msg.Topic, "homeassistant/") {
				topics = append(topics, msg.Topic)
			}
		case <-timeout:
			return topics
		}
	}
}

func TestHADiscoveryActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	mqttActor := adactor.NewTestMQTTActor(&cfg, nil, logger)
	mqttPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return mqttActor }))
	snapshotPID := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return adactor.NewSnapshotActor(growatt.TestSnapshotReader{}, 2*time.Second, logger)
	}))

	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&cfg, domain.ReadingDefinitions(cfg.CurrencySymbol), snapshotPID, mqttPID, logger)
	}))

	topics := collectDiscovery(mqttActor, 2*time.Second)
	assert.Len(topics, 24)
	assert.Contains(topics, "homeassistant/sensor/growatt_server_01J5TESTENTRY/load_power/config")
	assert.Contains(topics, "homeassistant/button/growatt_server_01J5TESTENTRY/refresh/config")

	// republish on request
	context.Send(pid, domain.RefreshDiscoveryRequest{})
	assert.Len(collectDiscovery(mqttActor, 1*time.Second), 24)

	context.Stop(pid)
	context.Stop(snapshotPID)
	context.Stop(mqttPID)
	as.Shutdown()
}
