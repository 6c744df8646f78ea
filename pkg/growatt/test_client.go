package growatt

import "context"

const TestEntryId = "01J5TESTENTRY"

func CreateTestSnapshotReader() (SnapshotReader, error) {
	return TestSnapshotReader{}, nil
}

// TestSnapshotReader serves a fixed SPA3000 snapshot, or SnapshotErr when set.
type TestSnapshotReader struct {
	SnapshotErr error
}

func (reader TestSnapshotReader) Open() error {
	return nil
}

func (reader TestSnapshotReader) Close() error {
	return nil
}

func (reader TestSnapshotReader) GetInfo() (*EntryInfo, error) {
	return &EntryInfo{
		EntryId:      TestEntryId,
		Title:        "Growatt Test Plant",
		Name:         "Growatt Inverter",
		Manufacturer: "Growatt",
		Model:        "SPA3000 + ShineWiFi-S",
	}, nil
}

func (reader TestSnapshotReader) GetSnapshot(ctx context.Context) (Snapshot, error) {
	if reader.SnapshotErr != nil {
		return nil, reader.SnapshotErr
	}
	return TestSnapshot(), nil
}

// TestSnapshot returns a snapshot shaped like a growatt_server total
// coordinator payload.
func TestSnapshot() Snapshot {
	return Snapshot{
		FieldStorageList: []any{
			map[string]any{
				FieldCapacity:     "42%",
				FieldPCharge:      float64(100),
				FieldPDischarge:   float64(0),
				FieldEChargeToday: "1.6",
				FieldEnergy:       float64(812.4),
				FieldDeviceStatus: "1",
				FieldDTC:          "4300",
			},
		},
		FieldDatalogList: []any{
			map[string]any{
				FieldValues: []any{"良", "已连接", "2024-06-01 12:05:00", "300"},
			},
		},
		FieldStoragePGrid:   float64(-200),
		FieldStoragePUser:   float64(200),
		FieldInvTodayPPV:    float64(1000),
		FieldTodayEnergy:    float64(7.3),
		FieldTotalEnergy:    "4120.5",
		FieldPlantMoneyText: "3.65",
		FieldTotalMoneyText: "2060.25",
		FieldCo2Reduction:   float64(4107.9),
	}
}

// ensure interface compliance
var _ SnapshotReader = TestSnapshotReader{}
