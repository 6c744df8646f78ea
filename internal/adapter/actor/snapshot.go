package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/util/actorutil"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// SnapshotActor serializes access to the upstream snapshot reader.
type SnapshotActor struct {
	behavior actor.Behavior
	stash    *actorutil.Stash
	reader   growatt.SnapshotReader
	timeout  time.Duration
	logger   *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewSnapshotActor(reader growatt.SnapshotReader, timeout time.Duration, logger *zap.Logger) *SnapshotActor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	act := &SnapshotActor{
		reader:   reader,
		timeout:  timeout,
		behavior: actor.NewBehavior(),
		stash:    &actorutil.Stash{},
		logger:   actorutil.ActorLogger(domain.ACTOR_ID_SNAPSHOT, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SnapshotActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SnapshotActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("snapshot@starting started")
		if err := state.reader.Open(); err != nil {
			state.logger.Error("snapshot@starting could not open reader", zap.Error(err))
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.closeReader(ctx)
	default:
		state.logger.Debug("snapshot@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SnapshotActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("snapshot@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SNAPSHOT,
			Healthy: true,
			State:   "idle",
		})
	case domain.GetDevicesInfoRequest:
		state.logger.Debug("snapshot@default: GetDevicesInfoRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.getDevicesInfo),
			mapTaskResult[domain.GetDevicesInfoResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetDevicesInfoResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingReader)
	case domain.GetSnapshotRequest:
		state.logger.Debug("snapshot@default: GetSnapshotRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskWithContext(ctx, state.getSnapshot),
			mapTaskResult[domain.GetSnapshotResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.GetSnapshotResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingReader)
	case *actor.Stopping:
		state.closeReader(ctx)
	default:
		state.logger.Debug("snapshot@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SnapshotActor) WaitingReader(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("snapshot@WaitingReader backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SNAPSHOT,
			Healthy: true,
			State:   "reading",
		})
	case *actor.Stopping:
		state.closeReader(ctx)
	default:
		state.logger.Debug("snapshot@WaitingReader stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// closeReader releases the reader. A failing Close is only logged.
func (state *SnapshotActor) closeReader(ctx actor.Context) {
	actorutil.NewBackgroundTask(ctx, func() (*struct{}, error) {
		return &struct{}{}, state.reader.Close()
	}).WithTimeout(state.timeout).OnError(func(err error) {
		state.logger.Warn("snapshot: close reader", zap.Error(err))
	}).Run()
}

func (a *SnapshotActor) getDevicesInfo() (*domain.GetDevicesInfoResponse, error) {
	info, err := a.reader.GetInfo()
	if err != nil {
		a.logger.Error("snapshot: entry info", zap.Error(err))
		return nil, err
	}
	return &domain.GetDevicesInfoResponse{
		Entry: info,
	}, nil
}

func (a *SnapshotActor) getSnapshot(ctx context.Context) (*domain.GetSnapshotResponse, error) {
	snapshot, err := a.reader.GetSnapshot(ctx)
	if err != nil {
		a.logger.Warn("snapshot: read", zap.Error(err))
		return nil, err
	}
	return &domain.GetSnapshotResponse{
		Snapshot: snapshot,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
