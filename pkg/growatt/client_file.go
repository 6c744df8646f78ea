package growatt

import (
	"context"
	"errors"
	"os"
)

// FileSnapshotReader reads the snapshot from a JSON file the upstream
// integration keeps up to date.
type FileSnapshotReader struct {
	path string
	info EntryInfo
}

func CreateFileSnapshotReader(path string, info EntryInfo) (*FileSnapshotReader, error) {
	if path == "" {
		return nil, errors.New("snapshot file is empty")
	}
	return &FileSnapshotReader{
		path: path,
		info: info,
	}, nil
}

func (r *FileSnapshotReader) Open() error {
	st, err := os.Stat(r.path)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return errors.New("snapshot file is a directory")
	}
	return nil
}

func (r *FileSnapshotReader) Close() error {
	return nil
}

func (r *FileSnapshotReader) GetInfo() (*EntryInfo, error) {
	info := r.info
	return &info, nil
}

func (r *FileSnapshotReader) GetSnapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeSnapshot(f)
}

// ensure interface compliance
var _ SnapshotReader = (*FileSnapshotReader)(nil)
