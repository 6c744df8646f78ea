package growatt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	maxSnapshotSize = 4 << 20
)

// HTTPSnapshotReader reads the snapshot the upstream integration exposes as a
// JSON document over HTTP.
type HTTPSnapshotReader struct {
	url     string
	token   string
	info    EntryInfo
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func CreateHTTPSnapshotReader(rawURL string, token string, info EntryInfo, timeout time.Duration, logger *zap.Logger) (*HTTPSnapshotReader, error) {
	if rawURL == "" {
		return nil, errors.New("snapshot url is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSnapshotReader{
		url:     rawURL,
		token:   token,
		info:    info,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (r *HTTPSnapshotReader) Open() error {
	u, err := url.Parse(r.url)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported snapshot url scheme %q", u.Scheme)
	}
	r.client = &http.Client{Timeout: r.timeout}
	return nil
}

func (r *HTTPSnapshotReader) Close() error {
	if r.client != nil {
		r.client.CloseIdleConnections()
	}
	return nil
}

func (r *HTTPSnapshotReader) GetInfo() (*EntryInfo, error) {
	info := r.info
	return &info, nil
}

func (r *HTTPSnapshotReader) GetSnapshot(ctx context.Context) (Snapshot, error) {
	if r.client == nil {
		return nil, errors.New("snapshot reader is not open")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", r.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, r.url)
	}

	snapshot, err := decodeSnapshot(io.LimitReader(resp.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot from %s: %w", r.url, err)
	}
	r.logger.Debug("snapshot fetched", zap.Duration("took", time.Since(start)), zap.Int("fields", len(snapshot)))
	return snapshot, nil
}

func decodeSnapshot(reader io.Reader) (Snapshot, error) {
	var raw any
	if err := json.NewDecoder(reader).Decode(&raw); err != nil {
		return nil, err
	}
	switch v := raw.(type) {
	case nil:
		// upstream has not polled yet
		return Snapshot{}, nil
	case map[string]any:
		return Snapshot(v), nil
	default:
		return nil, errors.New("snapshot is not a JSON object")
	}
}

// ensure interface compliance
var _ SnapshotReader = (*HTTPSnapshotReader)(nil)
