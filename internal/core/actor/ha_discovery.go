package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/config"
	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type HADiscoveryActor struct {
	config               *config.Config
	definitions          []domain.ReadingDefinition
	behavior             actor.Behavior
	stash                *actorutil.Stash
	snapshotActor        *actor.PID
	mqttActor            *actor.PID
	snapshotActorHealthy bool
	mqttActorHealthy     bool
	healthyRecv          int
	discovery            *domain.PublishDiscoveryRequest

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, definitions []domain.ReadingDefinition, snapshotActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:        config,
		definitions:   definitions,
		snapshotActor: snapshotActor,
		mqttActor:     mqttActor,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Snapshot and MQTT actor healthy
		state.healthyRecv = 0
		state.snapshotActorHealthy = false
		state.mqttActorHealthy = false
		// Snapshot Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.snapshotActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_SNAPSHOT,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SNAPSHOT:
				state.snapshotActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.snapshotActorHealthy && state.mqttActorHealthy {
				// Ask Snapshot GetDevicesInfoRequest
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.snapshotActor, domain.GetDevicesInfoRequest{}, 5*time.Second), func(err error) any {
					return domain.GetDevicesInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
			} else {
				panic(errors.New("MQTT Actor or Snapshot Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetDevicesInfoResponse:
		if msg.HasResponseError() {
			panic(msg.GetResponseError())
		}
		state.logger.Debug("hadiscovery@info: GetDevicesInfoResponse", zap.Any("entry", msg.Entry))

		discovery := state.buildDiscovery(msg)
		state.discovery = &discovery
		ctx.Send(state.mqttActor, discovery)

		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("hadiscovery@info: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// Done republishes the discovery config on request. Home Assistant drops
// non-retained state on restart and a broker may lose retained messages.
func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.RefreshDiscoveryRequest:
		state.logger.Info("hadiscovery@done: republish discovery")
		if state.discovery != nil {
			ctx.Send(state.mqttActor, *state.discovery)
		}
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_HA_DISCOVERY,
			Healthy: state.discovery != nil,
			State:   "done",
		})
	default:
		state.logger.Debug("hadiscovery@done: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HADiscoveryActor) buildDiscovery(msg domain.GetDevicesInfoResponse) domain.PublishDiscoveryRequest {
	var sensors []domain.GenericSensor

	bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

	inverterDevice := domain.InverterDevice(msg.Entry)
	inverterDevice.ViaDevice = bridgeDevice.Id
	sensors = append(sensors, domain.ReadingSensors(inverterDevice, msg.Entry.EntryId, state.definitions)...)

	return domain.PublishDiscoveryRequest{
		Sensors: sensors,
		Buttons: domain.RefreshButtons(inverterDevice),
	}
}
