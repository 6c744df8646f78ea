package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDiscoveryRefreshJob(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	as := actor.NewActorSystem()
	received := make(chan any, 10)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.RefreshDiscoveryRequest); ok {
			received <- msg
		}
	}))

	job := NewDiscoveryRefreshJob(as.Root, pid, zap.NewNop())
	assert.Contains(job.Description(), pid.Id)
	require.NoError(job.Execute(context.Background()))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("no refresh request received")
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(job.Execute(cancelled))

	as.Root.Stop(pid)
	as.Shutdown()
}

func TestStartDiscoveryRefresh(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	as := actor.NewActorSystem()
	received := make(chan any, 10)
	pid := as.Root.Spawn(actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.RefreshDiscoveryRequest); ok {
			received <- msg
		}
	}))
	job := NewDiscoveryRefreshJob(as.Root, pid, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := StartDiscoveryRefresh(ctx, "not a cron", job)
	assert.Error(err)

	// every second
	sched, err := StartDiscoveryRefresh(ctx, "* * * * * *", job)
	require.NoError(err)
	assert.True(sched.IsStarted())

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled refresh not received")
	}

	sched.Stop()
	as.Root.Stop(pid)
	as.Shutdown()
}
