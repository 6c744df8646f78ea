package growatt

import "context"

// snapshot fields
const (
	FieldStorageList    = "storageList"
	FieldDatalogList    = "datalogList"
	FieldStoragePGrid   = "storagePgrid"
	FieldStoragePUser   = "storagePuser"
	FieldInvTodayPPV    = "invTodayPpv"
	FieldTodayEnergy    = "todayEnergy"
	FieldTotalEnergy    = "totalEnergy"
	FieldPlantMoneyText = "plantMoneyText"
	FieldTotalMoneyText = "totalMoneyText"
	FieldCo2Reduction   = "Co2Reduction"
)

// storage record fields
const (
	FieldCapacity     = "capacity"
	FieldPCharge      = "pCharge"
	FieldPDischarge   = "pDischarge"
	FieldEChargeToday = "eChargeToday"
	FieldEnergy       = "energy"
	FieldDeviceStatus = "deviceStatus"
	FieldDTC          = "dtc"
)

// datalogger record fields
const (
	FieldValues = "values"
)

// positions inside a datalogger record values list
const (
	DataloggerValueSignal         = 0
	DataloggerValueStatus         = 1
	DataloggerValueLastUpdate     = 2
	DataloggerValueUpdateInterval = 3
)

const (
	DataloggerSignalExcellentStr = "Excellent"
	DataloggerSignalGoodStr      = "Good"
	DataloggerSignalFairStr      = "Fair"
	DataloggerSignalPoorStr      = "Poor"
	DataloggerConnectedStr       = "Connected"
	DataloggerDisconnectedStr    = "Disconnected"
)

var dataloggerSignals = map[string]string{
	"优": DataloggerSignalExcellentStr,
	"良": DataloggerSignalGoodStr,
	"中": DataloggerSignalFairStr,
	"差": DataloggerSignalPoorStr,
}

var dataloggerStatuses = map[string]string{
	"已连接": DataloggerConnectedStr,
	"未连接": DataloggerDisconnectedStr,
}

// DataloggerSignalToString translates the signal quality token reported by the
// Growatt server. Unknown tokens are returned unchanged.
func DataloggerSignalToString(raw string) string {
	if label, ok := dataloggerSignals[raw]; ok {
		return label
	}
	return raw
}

// DataloggerStatusToString translates the connection status token reported by
// the Growatt server. Unknown tokens are returned unchanged.
func DataloggerStatusToString(raw string) string {
	if label, ok := dataloggerStatuses[raw]; ok {
		return label
	}
	return raw
}

// Record is one element of a snapshot list (storage or datalogger record).
type Record map[string]any

// Snapshot is the latest poll result of the upstream integration, decoded from
// JSON. It is read-only for its consumers.
type Snapshot map[string]any

func (s Snapshot) Empty() bool {
	return len(s) == 0
}

// Storage returns the first storage record, or an empty record.
func (s Snapshot) Storage() Record {
	return s.firstRecord(FieldStorageList)
}

// Datalog returns the first datalogger record, or an empty record.
func (s Snapshot) Datalog() Record {
	return s.firstRecord(FieldDatalogList)
}

func (s Snapshot) firstRecord(field string) Record {
	list, ok := s[field].([]any)
	if !ok || len(list) == 0 {
		return Record{}
	}
	switch first := list[0].(type) {
	case map[string]any:
		return Record(first)
	case Record:
		return first
	default:
		return Record{}
	}
}

type EntryInfo struct {
	EntryId      string
	Title        string
	Name         string
	Manufacturer string
	Model        string
}

type SnapshotReader interface {
	Open() error
	Close() error
	GetInfo() (*EntryInfo, error)
	GetSnapshot(ctx context.Context) (Snapshot, error)
}
