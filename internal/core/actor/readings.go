package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/config"
	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/core/events"
	"github.com/berfenger/growattext2mqtt/internal/core/port"
	. "github.com/berfenger/growattext2mqtt/internal/util/actorutil"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ReadingsActor polls the snapshot actor, derives the readings and publishes
// them on the event stream. It keeps the last derived readings for queries.
type ReadingsActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler
	nextTick  scheduler.CancelFunc

	snapshotActor *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream
	deriver       port.ReadingDeriver

	readings   []domain.Reading
	snapshotOk bool
	updatedAt  time.Time

	logger *zap.Logger
}

type readingsTick struct {
}

func NewReadingsActor(config *config.Config, snapshotActor *actor.PID, deriver port.ReadingDeriver, eventStream *eventstream.EventStream, logger *zap.Logger) *ReadingsActor {
	act := &ReadingsActor{
		config:        config,
		snapshotActor: snapshotActor,
		deriver:       deriver,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_READINGS, logger),
		eventStream:   eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *ReadingsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *ReadingsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("readings@starting started")

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		// nothing derived yet, every reading is absent
		state.readings = state.deriver.DeriveAll(nil)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
		// first poll right away, the upstream snapshot is already populated
		ctx.Send(ctx.Self(), readingsTick{})
	case *actor.Restarting:
		state.cancelTick()
	default:
		state.logger.Debug("readings@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ReadingsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("readings@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_READINGS,
			Healthy: true,
			State:   "idle",
		})
	case readingsTick:
		state.logger.Debug("readings@default tick")
		state.poll(ctx)
	case domain.RefreshReadingsRequest:
		state.logger.Info("readings@default refresh requested")
		state.poll(ctx)
	case domain.GetReadingsRequest:
		state.respondReadings(ctx, msg)
	case *actor.Stopping:
		state.cancelTick()
	default:
		state.logger.Debug("readings@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *ReadingsActor) WaitingSnapshotReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetSnapshotResponse:
		var snapshot growatt.Snapshot
		if msg.HasResponseError() {
			// derive against no snapshot so every reading turns absent
			state.logger.Warn("readings@waiting GetSnapshotResponse error", zap.Error(msg.GetResponseError()))
		} else {
			state.logger.Debug("readings@waiting GetSnapshotResponse")
			snapshot = msg.Snapshot
		}
		state.update(snapshot, !msg.HasResponseError())

		state.scheduleTick(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_READINGS,
			Healthy: true,
			State:   "polling",
		})
	case domain.GetReadingsRequest:
		state.respondReadings(ctx, msg)
	case *actor.Stopping:
		state.cancelTick()
	default:
		state.logger.Debug("readings@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *ReadingsActor) poll(ctx actor.Context) {
	state.cancelTick()
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.snapshotActor, domain.GetSnapshotRequest{}, state.requestTimeout()), func(err error) any {
		return domain.GetSnapshotResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.behavior.BecomeStacked(state.WaitingSnapshotReceive)
}

func (state *ReadingsActor) update(snapshot growatt.Snapshot, snapshotOk bool) {
	state.readings = state.deriver.DeriveAll(snapshot)
	state.snapshotOk = snapshotOk
	state.updatedAt = time.Now()

	evs := events.ReadingsToUpdateEvents(state.readings, state.deriver.Definitions())
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func (state *ReadingsActor) respondReadings(ctx actor.Context, msg domain.GetReadingsRequest) {
	readings := make([]domain.Reading, len(state.readings))
	copy(readings, state.readings)
	ForRequest(msg).Respond(ctx, domain.GetReadingsResponse{
		EntryId:    state.config.Upstream.EntryId,
		Readings:   readings,
		SnapshotOk: state.snapshotOk,
		UpdatedAt:  state.updatedAt,
	})
}

func (state *ReadingsActor) scheduleTick(ctx actor.Context) {
	state.cancelTick()
	if state.config.MonitorConfig.PollIntervalMillis > 0 {
		state.nextTick = state.scheduler.RequestOnce(state.pollInterval(), ctx.Self(), readingsTick{})
	}
}

func (state *ReadingsActor) cancelTick() {
	if state.nextTick != nil {
		state.nextTick()
		state.nextTick = nil
	}
}

func (state *ReadingsActor) pollInterval() time.Duration {
	return time.Duration(state.config.MonitorConfig.PollIntervalMillis) * time.Millisecond
}

// requestTimeout leaves room for the reader timeout of the snapshot actor.
func (state *ReadingsActor) requestTimeout() time.Duration {
	return time.Duration(state.config.Upstream.TimeoutMillis)*time.Millisecond + 1*time.Second
}
