package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/berfenger/growattext2mqtt/pkg/growatt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE               = "bridge"
	SENSOR_ID_BATTERY_SOC                = "battery_soc"
	SENSOR_ID_BATTERY_CHARGE_POWER       = "battery_charge_power"
	SENSOR_ID_BATTERY_DISCHARGE_POWER    = "battery_discharge_power"
	SENSOR_ID_BATTERY_NET_POWER          = "battery_net_power"
	SENSOR_ID_BATTERY_ENERGY_TODAY       = "battery_energy_today"
	SENSOR_ID_BATTERY_ENERGY_TOTAL       = "battery_energy_total"
	SENSOR_ID_BATTERY_STATUS             = "battery_status"
	SENSOR_ID_BATTERY_ERROR_CODE         = "battery_error_code"
	SENSOR_ID_GRID_POWER                 = "grid_power"
	SENSOR_ID_GRID_LOAD_POWER            = "grid_load_power"
	SENSOR_ID_GRID_STATE                 = "grid_state"
	SENSOR_ID_PV_POWER                   = "pv_power"
	SENSOR_ID_PV_ENERGY_TODAY            = "pv_energy_today"
	SENSOR_ID_PV_ENERGY_TOTAL            = "pv_energy_total"
	SENSOR_ID_LOAD_POWER                 = "load_power"
	SENSOR_ID_MONEY_TODAY                = "money_today"
	SENSOR_ID_MONEY_TOTAL                = "money_total"
	SENSOR_ID_CO2_REDUCTION              = "co2_reduction"
	SENSOR_ID_DATALOGGER_SIGNAL          = "datalogger_signal"
	SENSOR_ID_DATALOGGER_STATUS          = "datalogger_status"
	SENSOR_ID_DATALOGGER_LAST_UPDATE     = "datalogger_last_update"
	SENSOR_ID_DATALOGGER_UPDATE_INTERVAL = "datalogger_update_interval"
	BUTTON_ID_REFRESH                    = "refresh"
	STATE_CLASS_MEASUREMENT              = "measurement"
	STATE_CLASS_TOTAL                    = "total"
	STATE_CLASS_TOTAL_INCREASING         = "total_increasing"
	DEVICE_CLASS_BATTERY                 = "battery"
	DEVICE_CLASS_DURATION                = "duration"
	DEVICE_CLASS_ENERGY                  = "energy"
	DEVICE_CLASS_MONETARY                = "monetary"
	DEVICE_CLASS_POWER                   = "power"
	DEVICE_CLASS_WEIGHT                  = "weight"
	DEVICE_CLASS_CONNECTIVITY            = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC              = "diagnostic"
	ENTITY_CLASS_CONFIG                  = "config"
	SENSOR_TYPE_SENSOR                   = "sensor"
	SENSOR_TYPE_BINARY                   = "binary_sensor"
	GRID_STATE_IMPORTING                 = "Importing"
	GRID_STATE_EXPORTING                 = "Exporting"
	GRID_STATE_IDLE                      = "Idle"
	DEFAULT_CURRENCY_SYMBOL              = "¥"
)

// ReadingDefinitions lists every derived reading in publication order.
func ReadingDefinitions(currency string) []ReadingDefinition {
	if currency == "" {
		currency = DEFAULT_CURRENCY_SYMBOL
	}
	return []ReadingDefinition{
		// battery
		{Key: SENSOR_ID_BATTERY_SOC, Name: "Battery State of Charge", Unit: "%", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_BATTERY, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_BATTERY_CHARGE_POWER, Name: "Battery Charge Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_BATTERY_DISCHARGE_POWER, Name: "Battery Discharge Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_BATTERY_NET_POWER, Name: "Battery Net Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_BATTERY_ENERGY_TODAY, Name: "Battery Energy Today", Unit: "kWh", Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_ENERGY, StateClass: STATE_CLASS_TOTAL_INCREASING, Decimals: 2},
		{Key: SENSOR_ID_BATTERY_ENERGY_TOTAL, Name: "Battery Total Energy", Unit: "kWh", Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_ENERGY, StateClass: STATE_CLASS_TOTAL_INCREASING, Decimals: 2},
		{Key: SENSOR_ID_BATTERY_STATUS, Name: "Battery Status", Kind: ValueKindText,
			Icon: "mdi:battery-heart-variant"},
		{Key: SENSOR_ID_BATTERY_ERROR_CODE, Name: "Battery Error Code", Kind: ValueKindText,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC, Icon: "mdi:alert-circle-outline"},

		// grid
		{Key: SENSOR_ID_GRID_POWER, Name: "Grid Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_GRID_LOAD_POWER, Name: "Grid → Load Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_GRID_STATE, Name: "Grid Import/Export State", Kind: ValueKindText,
			Icon: "mdi:transmission-tower"},

		// solar
		{Key: SENSOR_ID_PV_POWER, Name: "PV Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},
		{Key: SENSOR_ID_PV_ENERGY_TODAY, Name: "PV Energy Today", Unit: "kWh", Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_ENERGY, StateClass: STATE_CLASS_TOTAL_INCREASING, Decimals: 2},
		{Key: SENSOR_ID_PV_ENERGY_TOTAL, Name: "PV Total Energy", Unit: "kWh", Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_ENERGY, StateClass: STATE_CLASS_TOTAL_INCREASING, Decimals: 2},

		// load
		{Key: SENSOR_ID_LOAD_POWER, Name: "Home Load Power", Unit: "W", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_POWER, StateClass: STATE_CLASS_MEASUREMENT},

		// plant
		{Key: SENSOR_ID_MONEY_TODAY, Name: "Money Saved Today", Unit: currency, Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_MONETARY, StateClass: STATE_CLASS_TOTAL, Decimals: 2},
		{Key: SENSOR_ID_MONEY_TOTAL, Name: "Money Saved Total", Unit: currency, Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_MONETARY, StateClass: STATE_CLASS_TOTAL, Decimals: 2},
		{Key: SENSOR_ID_CO2_REDUCTION, Name: "CO₂ Reduction", Unit: "kg", Kind: ValueKindFloat,
			DeviceClass: DEVICE_CLASS_WEIGHT, StateClass: STATE_CLASS_TOTAL_INCREASING, Decimals: 1},

		// datalogger
		{Key: SENSOR_ID_DATALOGGER_SIGNAL, Name: "Datalogger Signal Quality", Kind: ValueKindText,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC, Icon: "mdi:wifi"},
		{Key: SENSOR_ID_DATALOGGER_STATUS, Name: "Datalogger Connection Status", Kind: ValueKindText,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC, Icon: "mdi:lan-connect"},
		{Key: SENSOR_ID_DATALOGGER_LAST_UPDATE, Name: "Datalogger Last Update", Kind: ValueKindText,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC, Icon: "mdi:clock-outline"},
		{Key: SENSOR_ID_DATALOGGER_UPDATE_INTERVAL, Name: "Datalogger Update Interval", Unit: "s", Kind: ValueKindInt,
			DeviceClass: DEVICE_CLASS_DURATION, EntityCategory: ENTITY_CLASS_DIAGNOSTIC},
	}
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("growattext_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "ACasal",
		Model:        "Growatt Extended",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Growatt Extended %s", md5HashShort(baseTopic)),
	}
}

// InverterDevice identifies the inverter by the upstream entry it is read from.
func InverterDevice(info *growatt.EntryInfo) Device {
	return Device{
		Id:           fmt.Sprintf("growatt_server_%s", info.EntryId),
		Manufacturer: info.Manufacturer,
		Model:        info.Model,
		Name:         info.Name,
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

// ReadingSensors builds one sensor per reading. Unique ids are
// <entry_id>_<key> so entities survive a bridge reinstall.
func ReadingSensors(inverterDevice Device, entryId string, definitions []ReadingDefinition) []GenericSensor {

	var sensors []GenericSensor

	for i, def := range definitions {
		device := inverterDevice
		if i > 0 {
			device = IdDevice(inverterDevice)
		}
		var precision *uint
		if def.Kind == ValueKindFloat {
			decimals := def.Decimals
			precision = &decimals
		}
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                def.Key,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              def.Name,
			UnitOfMeasurement: def.Unit,
			StateClass:        def.StateClass,
			DeviceClass:       def.DeviceClass,
			EntityCategory:    def.EntityCategory,
			Icon:              def.Icon,
			Precision:         precision,
			UniqueId:          ReadingUniqueId(entryId, def.Key),
		})
	}

	return sensors
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

func RefreshButtons(inverterDevice Device) []GenericButton {
	return []GenericButton{
		{
			Device:         IdDevice(inverterDevice),
			Id:             BUTTON_ID_REFRESH,
			Name:           "Refresh readings",
			UniqueId:       uniqueId(inverterDevice.Id, BUTTON_ID_REFRESH),
			Icon:           "mdi:refresh",
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		},
	}
}

func ReadingUniqueId(entryId, key string) string {
	return fmt.Sprintf("%s_%s", entryId, key)
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
