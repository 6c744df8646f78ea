package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMaster answers like the master actor with fixed readings.
func fakeMaster(healthy bool) actor.ReceiveFunc {
	return func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetReadingsRequest:
			ctx.Respond(domain.GetReadingsResponse{
				EntryId:    "entry1",
				SnapshotOk: true,
				UpdatedAt:  time.Unix(1700000000, 0).UTC(),
				Readings: []domain.Reading{
					{Key: domain.SENSOR_ID_BATTERY_SOC, Name: "Battery State of Charge", Unit: "%", Value: domain.IntValue(42)},
					{Key: domain.SENSOR_ID_GRID_STATE, Name: "Grid Import/Export State", Value: domain.TextValue("Idle")},
					{Key: domain.SENSOR_ID_MONEY_TODAY, Name: "Money Saved Today", Unit: "¥", Value: domain.NoValue()},
				},
			})
		}
	}
}

func newTestServer(t *testing.T, healthy bool, gatherer prometheus.Gatherer) (*Server, func()) {
	as := actor.NewActorSystem()
	pid := as.Root.Spawn(actor.PropsFromFunc(fakeMaster(healthy)))
	cfg := util.LoadTestConfig()
	s := &Server{
		port:        cfg.Port,
		rootContext: as.Root,
		masterActor: pid,
		gatherer:    gatherer,
	}
	return s, func() {
		as.Root.Stop(pid)
		as.Shutdown()
	}
}

func TestHealthCheck(t *testing.T) {

	assert := assert.New(t)

	s, stop := newTestServer(t, true, nil)
	defer stop()

	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("health_check: OK", rec.Body.String())

	unhealthy, stop2 := newTestServer(t, false, nil)
	defer stop2()

	rec = httptest.NewRecorder()
	unhealthy.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	assert.Equal(http.StatusServiceUnavailable, rec.Code)
}

func TestReadings(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	s, stop := newTestServer(t, true, nil)
	defer stop()

	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readings", nil))
	require.Equal(http.StatusOK, rec.Code)

	var body struct {
		EntryId    string `json:"entry_id"`
		SnapshotOk bool   `json:"snapshot_ok"`
		UpdatedAt  string `json:"updated_at"`
		Readings   []struct {
			Key   string `json:"key"`
			Unit  string `json:"unit"`
			Value any    `json:"value"`
		} `json:"readings"`
	}
	require.NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal("entry1", body.EntryId)
	assert.True(body.SnapshotOk)
	assert.Equal("2023-11-14T22:13:20Z", body.UpdatedAt)
	require.Len(body.Readings, 3)
	assert.Equal(float64(42), body.Readings[0].Value)
	assert.Equal("%", body.Readings[0].Unit)
	assert.Equal("Idle", body.Readings[1].Value)
	assert.Nil(body.Readings[2].Value)
}

func TestMetricsRoute(t *testing.T) {

	assert := assert.New(t)

	reg := prometheus.NewRegistry()
	g := prometheus.NewGauge(prometheus.GaugeOpts{Name: "growattext_test_gauge", Help: "test"})
	g.Set(3)
	reg.MustRegister(g)

	s, stop := newTestServer(t, true, reg)
	defer stop()

	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusOK, rec.Code)
	assert.Contains(rec.Body.String(), "growattext_test_gauge 3")

	// disabled without a gatherer
	noMetrics, stop2 := newTestServer(t, true, nil)
	defer stop2()

	rec = httptest.NewRecorder()
	noMetrics.RegisterRoutes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(http.StatusNotFound, rec.Code)
}
