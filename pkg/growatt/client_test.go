package growatt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testInfo = EntryInfo{
	EntryId: "entry1",
	Title:   "Plant",
}

func TestHTTPSnapshotReader(t *testing.T) {

	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"storagePgrid": -200, "storageList": [{"capacity": "42%"}]}`))
	}))
	defer srv.Close()

	reader, err := CreateHTTPSnapshotReader(srv.URL, "secret", testInfo, 2*time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())
	defer reader.Close()

	snapshot, err := reader.GetSnapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(float64(-200), snapshot[FieldStoragePGrid])
	assert.Equal("42%", snapshot.Storage()[FieldCapacity])

	info, err := reader.GetInfo()
	require.NoError(t, err)
	assert.Equal("entry1", info.EntryId)
}

func TestHTTPSnapshotReaderStatusError(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	reader, err := CreateHTTPSnapshotReader(srv.URL, "", testInfo, 2*time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())

	_, err = reader.GetSnapshot(context.Background())
	assert.ErrorContains(t, err, "502")
}

func TestHTTPSnapshotReaderNotAnObject(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	}))
	defer srv.Close()

	reader, err := CreateHTTPSnapshotReader(srv.URL, "", testInfo, 2*time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())

	_, err = reader.GetSnapshot(context.Background())
	assert.Error(t, err)
}

func TestHTTPSnapshotReaderNullBody(t *testing.T) {

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	}))
	defer srv.Close()

	reader, err := CreateHTTPSnapshotReader(srv.URL, "", testInfo, 2*time.Second, nil)
	require.NoError(t, err)
	require.NoError(t, reader.Open())

	snapshot, err := reader.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, snapshot.Empty())
}

func TestHTTPSnapshotReaderOpen(t *testing.T) {

	reader, err := CreateHTTPSnapshotReader("ftp://example.org/data", "", testInfo, time.Second, nil)
	require.NoError(t, err)
	assert.Error(t, reader.Open())

	_, err = CreateHTTPSnapshotReader("", "", testInfo, time.Second, nil)
	assert.Error(t, err)

	reader, err = CreateHTTPSnapshotReader("http://localhost:1/data", "", testInfo, time.Second, nil)
	require.NoError(t, err)
	_, err = reader.GetSnapshot(context.Background())
	assert.Error(t, err, "not open")
}

func TestFileSnapshotReader(t *testing.T) {

	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"datalogList": [{"values": ["优", "已连接", "", "30"]}]}`), 0o600))

	reader, err := CreateFileSnapshotReader(path, testInfo)
	require.NoError(t, err)
	require.NoError(t, reader.Open())

	snapshot, err := reader.GetSnapshot(context.Background())
	require.NoError(t, err)

	values, ok := snapshot.Datalog()[FieldValues].([]any)
	require.True(t, ok)
	assert.Len(values, 4)
	assert.Equal("30", values[DataloggerValueUpdateInterval])
}

func TestFileSnapshotReaderMissing(t *testing.T) {

	reader, err := CreateFileSnapshotReader(filepath.Join(t.TempDir(), "missing.json"), testInfo)
	require.NoError(t, err)
	assert.Error(t, reader.Open())
}
