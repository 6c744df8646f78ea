package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func fixedFetcher(res *domain.GetReadingsResponse, err error) ReadingsFetcher {
	return func(context.Context) (*domain.GetReadingsResponse, error) {
		return res, err
	}
}

func TestCollectorReadings(t *testing.T) {

	assert := assert.New(t)

	res := &domain.GetReadingsResponse{
		EntryId:    "entry1",
		SnapshotOk: true,
		UpdatedAt:  time.Unix(1700000000, 0),
		Readings: []domain.Reading{
			{Key: "battery_soc", Name: "Battery State of Charge", Unit: "%", Value: domain.IntValue(42)},
			{Key: "pv_energy_today", Name: "PV Energy Today", Unit: "kWh", Value: domain.FloatValue(4.5)},
			{Key: "grid_state", Name: "Grid Import/Export State", Value: domain.TextValue("Importing")},
			{Key: "money_today", Name: "Money Saved Today", Unit: "¥", Value: domain.NoValue()},
		},
	}
	c := NewCollector("entry1", fixedFetcher(res, nil), time.Second, zap.NewNop())

	expected := `
# HELP growattext_reading Current value of a numeric reading
# TYPE growattext_reading gauge
growattext_reading{entry_id="entry1",key="battery_soc",name="Battery State of Charge",unit="%"} 42
growattext_reading{entry_id="entry1",key="pv_energy_today",name="PV Energy Today",unit="kWh"} 4.5
# HELP growattext_reading_info Current value of a text reading, carried in the value label
# TYPE growattext_reading_info gauge
growattext_reading_info{entry_id="entry1",key="grid_state",name="Grid Import/Export State",value="Importing"} 1
# HELP growattext_scrape_success Whether the readings could be fetched from the bridge
# TYPE growattext_scrape_success gauge
growattext_scrape_success{entry_id="entry1"} 1
# HELP growattext_snapshot_ok Whether the last poll read the upstream snapshot (1=yes, 0=no)
# TYPE growattext_snapshot_ok gauge
growattext_snapshot_ok{entry_id="entry1"} 1
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"growattext_reading", "growattext_reading_info", "growattext_scrape_success", "growattext_snapshot_ok")
	assert.NoError(err)

	// absent money_today is skipped
	assert.Equal(6, testutil.CollectAndCount(c))
}

func TestCollectorFetchError(t *testing.T) {

	assert := assert.New(t)

	c := NewCollector("entry1", fixedFetcher(nil, errors.New("timeout")), time.Second, zap.NewNop())

	assert.Equal(1, testutil.CollectAndCount(c))
	assert.Equal(0, testutil.CollectAndCount(c, "growattext_reading"))

	reg := prometheus.NewPedanticRegistry()
	assert.NoError(reg.Register(c))
	mfs, err := reg.Gather()
	assert.NoError(err)
	if assert.Len(mfs, 1) {
		assert.Equal("growattext_scrape_success", mfs[0].GetName())
		assert.Equal(float64(0), mfs[0].GetMetric()[0].GetGauge().GetValue())
	}
}
