package actor

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/core/events"
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

func nextPublished(t *testing.T, act *MQTTActor) PublishedMessage {
	select {
	case msg := <-act.Published():
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
		return PublishedMessage{}
	}
}

func TestMQTTActor(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	mqttActor := NewTestMQTTActor(&cfg, &es, logger)
	props := actor.PropsFromProducer(func() actor.Actor { return mqttActor })
	pid := context.Spawn(props)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)

	es.Publish(domain.IntSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_BATTERY_SOC,
		},
		Value: 42,
	})
	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_PV_ENERGY_TODAY,
		},
		Value:    7.3,
		Decimals: 2,
	})
	es.Publish(domain.UnknownSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: domain.SENSOR_ID_MONEY_TOTAL,
		},
	})

	assert.Equal(PublishedMessage{Topic: "growattext/sensor/battery_soc/state", Payload: "42"}, nextPublished(t, mqttActor))
	assert.Equal(PublishedMessage{Topic: "growattext/sensor/pv_energy_today/state", Payload: "7.30"}, nextPublished(t, mqttActor))
	assert.Equal(PublishedMessage{Topic: "growattext/sensor/money_total/state", Payload: mqtt.MQTT_PAYLOAD_NONE}, nextPublished(t, mqttActor))

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}

func TestMQTTActorEventPayloads(t *testing.T) {

	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	state := NewTestMQTTActor(&cfg, nil, logger)
	state.client = mqtt.CreateMQTTClient(&cfg, mqtt.OptsFromConfig(&cfg), nil, nil)

	readings := []domain.Reading{
		{Key: domain.SENSOR_ID_GRID_STATE, Value: domain.TextValue(domain.GRID_STATE_EXPORTING)},
		{Key: domain.SENSOR_ID_CO2_REDUCTION, Value: domain.FloatValue(4107.94)},
		{Key: domain.SENSOR_ID_BATTERY_NET_POWER, Value: domain.IntValue(-100)},
		{Key: domain.SENSOR_ID_DATALOGGER_UPDATE_INTERVAL, Value: domain.NoValue()},
	}
	evs := events.ReadingsToUpdateEvents(readings, domain.ReadingDefinitions(""))

	var payloads []string
	for _, ev := range evs {
		raw := state.event2MQTTMessage(ev)
		if assert.NotNil(raw) {
			payloads = append(payloads, raw.message)
		}
	}
	assert.Equal([]string{domain.GRID_STATE_EXPORTING, "4107.9", "-100", "None"}, payloads)

	bridge := state.event2MQTTMessage(events.BridgeStateToUpdateEvent(false))
	assert.Equal("growattext/bridge/state", bridge.topic)
	assert.Equal(mqtt.MQTT_PAYLOAD_OFFLINE, bridge.message)
	assert.True(bridge.retain)

	assert.Nil(state.event2MQTTMessage("not an event"))
}

func TestMQTTActorDiscovery(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	mqttActor := NewTestMQTTActor(&cfg, nil, logger)
	pid := context.Spawn(actor.PropsFromProducer(func() actor.Actor { return mqttActor }))

	info, err := growatt.TestSnapshotReader{}.GetInfo()
	require.NoError(err)
	inverter := domain.InverterDevice(info)

	context.Send(pid, domain.PublishDiscoveryRequest{
		Sensors: domain.ReadingSensors(inverter, info.EntryId, domain.ReadingDefinitions(""))[:1],
		Buttons: domain.RefreshButtons(inverter),
	})

	sensor := nextPublished(t, mqttActor)
	assert.Equal("homeassistant/sensor/growatt_server_01J5TESTENTRY/battery_soc/config", sensor.Topic)
	assert.True(sensor.Retain)
	var cfgMsg mqtt.HADiscoveryConfig
	require.NoError(json.Unmarshal([]byte(sensor.Payload), &cfgMsg))
	assert.Equal("01J5TESTENTRY_battery_soc", cfgMsg.UniqueId)

	button := nextPublished(t, mqttActor)
	assert.Equal("homeassistant/button/growatt_server_01J5TESTENTRY/refresh/config", button.Topic)

	context.Stop(pid)
	as.Shutdown()
}

func TestMQTTActorRequestsReadingsWhenReady(t *testing.T) {

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	refresh := make(chan domain.RefreshReadingsRequest, 1)
	parent := context.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		switch msg := ctx.Message().(type) {
		case *actor.Started:
			ctx.Spawn(actor.PropsFromProducer(func() actor.Actor {
				return NewTestMQTTActor(&cfg, &eventstream.EventStream{}, logger)
			}))
		case domain.RefreshReadingsRequest:
			refresh <- msg
		}
	}))

	// states published before the subscription are requested again
	select {
	case <-refresh:
	case <-time.After(2 * time.Second):
		t.Fatal("no readings refresh requested")
	}

	context.Stop(parent)
	as.Shutdown()
}
