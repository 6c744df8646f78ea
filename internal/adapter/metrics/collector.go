package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "growattext"

// ReadingsFetcher returns the readings last derived by the bridge.
type ReadingsFetcher func(ctx context.Context) (*domain.GetReadingsResponse, error)

// Collector implements prometheus.Collector over the current readings.
// Numeric readings are gauges, text readings are info series.
type Collector struct {
	fetch   ReadingsFetcher
	timeout time.Duration
	logger  *zap.Logger

	reading       *prometheus.Desc
	readingInfo   *prometheus.Desc
	snapshotOk    *prometheus.Desc
	lastUpdate    *prometheus.Desc
	scrapeSuccess *prometheus.Desc
}

func NewCollector(entryId string, fetch ReadingsFetcher, timeout time.Duration, logger *zap.Logger) *Collector {
	labels := prometheus.Labels{"entry_id": entryId}
	return &Collector{
		fetch:   fetch,
		timeout: timeout,
		logger:  logger,
		reading: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reading"),
			"Current value of a numeric reading",
			[]string{"key", "name", "unit"},
			labels,
		),
		readingInfo: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "reading_info"),
			"Current value of a text reading, carried in the value label",
			[]string{"key", "name", "value"},
			labels,
		),
		snapshotOk: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "snapshot_ok"),
			"Whether the last poll read the upstream snapshot (1=yes, 0=no)",
			nil,
			labels,
		),
		lastUpdate: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "last_update_timestamp_seconds"),
			"Unix time of the last poll",
			nil,
			labels,
		),
		scrapeSuccess: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "scrape_success"),
			"Whether the readings could be fetched from the bridge",
			nil,
			labels,
		),
	}
}

// ActorReadingsFetcher asks the given actor for its readings.
func ActorReadingsFetcher(root *actor.RootContext, pid *actor.PID) ReadingsFetcher {
	return func(ctx context.Context) (*domain.GetReadingsResponse, error) {
		timeout := 5 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		res, err := root.RequestFuture(pid, domain.GetReadingsRequest{}, timeout).Result()
		if err != nil {
			return nil, err
		}
		response, ok := res.(domain.GetReadingsResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected response %T", res)
		}
		if response.HasResponseError() {
			return nil, response.GetResponseError()
		}
		return &response, nil
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.reading
	ch <- c.readingInfo
	ch <- c.snapshotOk
	ch <- c.lastUpdate
	ch <- c.scrapeSuccess
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.fetch(ctx)
	if err != nil {
		c.logger.Warn("metrics: could not fetch readings", zap.Error(err))
		ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.scrapeSuccess, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.snapshotOk, prometheus.GaugeValue, boolToFloat(res.SnapshotOk))
	if !res.UpdatedAt.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastUpdate, prometheus.GaugeValue, float64(res.UpdatedAt.Unix()))
	}

	for _, r := range res.Readings {
		if v, ok := r.Value.Number(); ok {
			ch <- prometheus.MustNewConstMetric(c.reading, prometheus.GaugeValue, v, r.Key, r.Name, r.Unit)
			continue
		}
		// absent readings are not exported
		if r.Value.Kind == domain.ValueKindText {
			ch <- prometheus.MustNewConstMetric(c.readingInfo, prometheus.GaugeValue, 1, r.Key, r.Name, r.Value.Text)
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

var _ prometheus.Collector = (*Collector)(nil)
