package service

import (
	"strings"

	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/internal/core/port"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"
)

// DefaultReadingDeriver maps a snapshot to the fixed set of readings. It keeps
// no state besides the immutable definitions, so it is safe for concurrent use.
type DefaultReadingDeriver struct {
	definitions []domain.ReadingDefinition
}

type derivation func(v snapshotView) domain.Value

// snapshotView resolves the first storage and datalogger records once per
// evaluation pass.
type snapshotView struct {
	data    growatt.Snapshot
	storage growatt.Record
	datalog growatt.Record
}

// used when the datalogger record has no values list
var defaultDatalogValues = []any{"", "", "", "0"}

var derivations = map[string]derivation{
	domain.SENSOR_ID_BATTERY_SOC:                batterySoC,
	domain.SENSOR_ID_BATTERY_CHARGE_POWER:       intField(storageRecord, growatt.FieldPCharge),
	domain.SENSOR_ID_BATTERY_DISCHARGE_POWER:    intField(storageRecord, growatt.FieldPDischarge),
	domain.SENSOR_ID_BATTERY_NET_POWER:          batteryNetPower,
	domain.SENSOR_ID_BATTERY_ENERGY_TODAY:       floatField(storageRecord, growatt.FieldEChargeToday),
	domain.SENSOR_ID_BATTERY_ENERGY_TOTAL:       floatField(storageRecord, growatt.FieldEnergy),
	domain.SENSOR_ID_BATTERY_STATUS:             textField(storageRecord, growatt.FieldDeviceStatus),
	domain.SENSOR_ID_BATTERY_ERROR_CODE:         textField(storageRecord, growatt.FieldDTC),
	domain.SENSOR_ID_GRID_POWER:                 intField(snapshotRecord, growatt.FieldStoragePGrid),
	domain.SENSOR_ID_GRID_LOAD_POWER:            intField(snapshotRecord, growatt.FieldStoragePUser),
	domain.SENSOR_ID_GRID_STATE:                 gridState,
	domain.SENSOR_ID_PV_POWER:                   intField(snapshotRecord, growatt.FieldInvTodayPPV),
	domain.SENSOR_ID_PV_ENERGY_TODAY:            floatField(snapshotRecord, growatt.FieldTodayEnergy),
	domain.SENSOR_ID_PV_ENERGY_TOTAL:            floatField(snapshotRecord, growatt.FieldTotalEnergy),
	domain.SENSOR_ID_LOAD_POWER:                 loadPower,
	domain.SENSOR_ID_MONEY_TODAY:                floatField(snapshotRecord, growatt.FieldPlantMoneyText),
	domain.SENSOR_ID_MONEY_TOTAL:                floatField(snapshotRecord, growatt.FieldTotalMoneyText),
	domain.SENSOR_ID_CO2_REDUCTION:              floatField(snapshotRecord, growatt.FieldCo2Reduction),
	domain.SENSOR_ID_DATALOGGER_SIGNAL:          dataloggerText(growatt.DataloggerValueSignal, growatt.DataloggerSignalToString),
	domain.SENSOR_ID_DATALOGGER_STATUS:          dataloggerText(growatt.DataloggerValueStatus, growatt.DataloggerStatusToString),
	domain.SENSOR_ID_DATALOGGER_LAST_UPDATE:     dataloggerText(growatt.DataloggerValueLastUpdate, nil),
	domain.SENSOR_ID_DATALOGGER_UPDATE_INTERVAL: dataloggerUpdateInterval,
}

func NewReadingDeriver(currency string) *DefaultReadingDeriver {
	return &DefaultReadingDeriver{
		definitions: domain.ReadingDefinitions(currency),
	}
}

func (d *DefaultReadingDeriver) Definitions() []domain.ReadingDefinition {
	return d.definitions
}

// Derive returns the value of one reading, or the absence value when the
// snapshot is empty, the key is unknown or the source field is malformed.
func (d *DefaultReadingDeriver) Derive(snapshot growatt.Snapshot, key string) domain.Value {
	if snapshot.Empty() {
		return domain.NoValue()
	}
	fn, ok := derivations[key]
	if !ok {
		return domain.NoValue()
	}
	return fn(newSnapshotView(snapshot))
}

func (d *DefaultReadingDeriver) DeriveAll(snapshot growatt.Snapshot) []domain.Reading {
	readings := make([]domain.Reading, 0, len(d.definitions))
	var view snapshotView
	if !snapshot.Empty() {
		view = newSnapshotView(snapshot)
	}
	for _, def := range d.definitions {
		value := domain.NoValue()
		if fn, ok := derivations[def.Key]; ok && !snapshot.Empty() {
			value = fn(view)
		}
		readings = append(readings, domain.Reading{
			Key:   def.Key,
			Name:  def.Name,
			Unit:  def.Unit,
			Value: value,
		})
	}
	return readings
}

func newSnapshotView(snapshot growatt.Snapshot) snapshotView {
	return snapshotView{
		data:    snapshot,
		storage: snapshot.Storage(),
		datalog: snapshot.Datalog(),
	}
}

func storageRecord(v snapshotView) map[string]any {
	return v.storage
}

func snapshotRecord(v snapshotView) map[string]any {
	return v.data
}

// intOrZero reads an integer field. A missing field counts as 0, a malformed
// one as absent.
func intOrZero(record map[string]any, field string) (int64, bool) {
	raw, ok := record[field]
	if !ok {
		return 0, true
	}
	return toInt(raw)
}

func intField(record func(snapshotView) map[string]any, field string) derivation {
	return func(v snapshotView) domain.Value {
		n, ok := intOrZero(record(v), field)
		if !ok {
			return domain.NoValue()
		}
		return domain.IntValue(n)
	}
}

func floatField(record func(snapshotView) map[string]any, field string) derivation {
	return func(v snapshotView) domain.Value {
		raw, ok := record(v)[field]
		if !ok {
			return domain.FloatValue(0)
		}
		f, ok := toFloat(raw)
		if !ok {
			return domain.NoValue()
		}
		return domain.FloatValue(f)
	}
}

func textField(record func(snapshotView) map[string]any, field string) derivation {
	return func(v snapshotView) domain.Value {
		s, ok := toText(record(v)[field])
		if !ok {
			return domain.NoValue()
		}
		return domain.TextValue(s)
	}
}

func batterySoC(v snapshotView) domain.Value {
	raw, ok := v.storage[growatt.FieldCapacity]
	if !ok {
		raw = "0%"
	}
	capacity, ok := raw.(string)
	if !ok {
		return domain.NoValue()
	}
	soc, ok := toInt(strings.ReplaceAll(capacity, "%", ""))
	if !ok {
		return domain.NoValue()
	}
	return domain.IntValue(soc)
}

func batteryNet(v snapshotView) (int64, bool) {
	charge, ok := intOrZero(v.storage, growatt.FieldPCharge)
	if !ok {
		return 0, false
	}
	discharge, ok := intOrZero(v.storage, growatt.FieldPDischarge)
	if !ok {
		return 0, false
	}
	return discharge - charge, true
}

func batteryNetPower(v snapshotView) domain.Value {
	net, ok := batteryNet(v)
	if !ok {
		return domain.NoValue()
	}
	return domain.IntValue(net)
}

func gridState(v snapshotView) domain.Value {
	grid, ok := intOrZero(v.data, growatt.FieldStoragePGrid)
	if !ok {
		return domain.NoValue()
	}
	switch {
	case grid < 0:
		return domain.TextValue(domain.GRID_STATE_IMPORTING)
	case grid > 0:
		return domain.TextValue(domain.GRID_STATE_EXPORTING)
	default:
		return domain.TextValue(domain.GRID_STATE_IDLE)
	}
}

// loadPower balances the house: pv + grid - battery net.
func loadPower(v snapshotView) domain.Value {
	pv, ok := intOrZero(v.data, growatt.FieldInvTodayPPV)
	if !ok {
		return domain.NoValue()
	}
	grid, ok := intOrZero(v.data, growatt.FieldStoragePGrid)
	if !ok {
		return domain.NoValue()
	}
	net, ok := batteryNet(v)
	if !ok {
		return domain.NoValue()
	}
	return domain.IntValue(pv + grid - net)
}

func (v snapshotView) datalogValue(index int) (any, bool) {
	raw, ok := v.datalog[growatt.FieldValues]
	if !ok {
		return defaultDatalogValues[index], true
	}
	values, ok := raw.([]any)
	if !ok || index >= len(values) {
		return nil, false
	}
	return values[index], true
}

func dataloggerText(index int, translate func(string) string) derivation {
	return func(v snapshotView) domain.Value {
		raw, ok := v.datalogValue(index)
		if !ok {
			return domain.NoValue()
		}
		s, ok := toText(raw)
		if !ok {
			return domain.NoValue()
		}
		if translate != nil {
			s = translate(s)
		}
		return domain.TextValue(s)
	}
}

func dataloggerUpdateInterval(v snapshotView) domain.Value {
	raw, ok := v.datalogValue(growatt.DataloggerValueUpdateInterval)
	if !ok {
		return domain.NoValue()
	}
	seconds, ok := toInt(raw)
	if !ok {
		return domain.NoValue()
	}
	return domain.IntValue(seconds)
}

// ensure interface compliance
var _ port.ReadingDeriver = (*DefaultReadingDeriver)(nil)
