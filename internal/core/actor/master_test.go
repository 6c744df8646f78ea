package actor

import (
	"errors"
	"strings"
	"testing"
	"time"

	adactor "github.com/berfenger/growattext2mqtt/internal/adapter/actor"
	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/core/service"
	"github.com/berfenger/growattext2mqtt/internal/mqtt"
	"github.com/berfenger/growattext2mqtt/internal/util"
	"github.com/berfenger/growattext2mqtt/internal/util/actorutil"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	var mqttActor *adactor.MQTTActor
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, service.NewReadingDeriver(cfg.CurrencySymbol), func() *adactor.SnapshotActor {
			return adactor.NewSnapshotActor(growatt.TestSnapshotReader{}, 2*time.Second, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			mqttActor = adactor.NewTestMQTTActor(&cfg, es, logger)
			return mqttActor
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(err)

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(healthResp.Healthy, "healthy is true")

	res, err = context.RequestFuture(pid, domain.GetReadingsRequest{}, 5*time.Second).Result()
	require.NoError(err)
	readingsResp, ok := res.(domain.GetReadingsResponse)
	require.True(ok)
	assert.True(readingsResp.SnapshotOk)
	assert.Equal(growatt.TestEntryId, readingsResp.EntryId)
	require.Len(readingsResp.Readings, 22)
	assert.Equal(domain.IntValue(42), readingsResp.Readings[0].Value)
	assert.False(readingsResp.UpdatedAt.IsZero())

	// the refresh button triggers a new poll
	before := readingsResp.UpdatedAt
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.BUTTON_ID_REFRESH,
		Command:  mqtt.MQTT_COMMAND_BUTTON,
		Payload:  mqtt.MQTT_PAYLOAD_PRESS,
	}})
	assert.Eventually(func() bool {
		res, err := context.RequestFuture(pid, domain.GetReadingsRequest{}, time.Second).Result()
		if err != nil {
			return false
		}
		return res.(domain.GetReadingsResponse).UpdatedAt.After(before)
	}, 3*time.Second, 100*time.Millisecond)

	// discovery config and sensor states reached the MQTT actor
	require.NotNil(mqttActor)
	var discovery, states int
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case msg := <-mqttActor.Published():
			if strings.HasPrefix(msg.Topic, "homeassistant/") {
				discovery++
			} else {
				states++
			}
		case <-timeout:
			break loop
		}
	}
	// bridge + 22 readings + refresh button
	assert.Equal(24, discovery)
	assert.GreaterOrEqual(states, 22)

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorUpstreamDown(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	cfg.MQTT.HADiscoveryEnable = false
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, service.NewReadingDeriver(""), func() *adactor.SnapshotActor {
			return adactor.NewSnapshotActor(growatt.TestSnapshotReader{SnapshotErr: errors.New("upstream down")}, 2*time.Second, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, "master_down")
	require.NoError(err)

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.GetReadingsRequest{}, 5*time.Second).Result()
	require.NoError(err)
	readingsResp := res.(domain.GetReadingsResponse)
	assert.False(readingsResp.SnapshotOk)
	require.Len(readingsResp.Readings, 22)
	for _, r := range readingsResp.Readings {
		assert.False(r.Value.Present(), r.Key)
	}

	context.Stop(pid)

	as.Shutdown()
}
