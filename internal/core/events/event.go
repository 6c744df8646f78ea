package events

import (
	. "github.com/berfenger/growattext2mqtt/internal/core/domain"
)

// ReadingsToUpdateEvents maps each reading to the sensor update event of its
// kind. Absent readings become unknown events so stale states get cleared.
func ReadingsToUpdateEvents(readings []Reading, definitions []ReadingDefinition) []any {
	decimals := make(map[string]uint, len(definitions))
	for _, def := range definitions {
		decimals[def.Key] = def.Decimals
	}

	var events []any

	for _, r := range readings {
		mixIn := SensorUpdateEventMixIn{
			Id: r.Key,
		}
		switch r.Value.Kind {
		case ValueKindInt:
			events = append(events, IntSensorUpdateEvent{
				SensorUpdateEventMixIn: mixIn,
				Value:                  r.Value.Int,
			})
		case ValueKindFloat:
			events = append(events, FloatSensorUpdateEvent{
				SensorUpdateEventMixIn: mixIn,
				Value:                  r.Value.Float,
				Decimals:               decimals[r.Key],
			})
		case ValueKindText:
			events = append(events, TextSensorUpdateEvent{
				SensorUpdateEventMixIn: mixIn,
				Value:                  r.Value.Text,
			})
		default:
			events = append(events, UnknownSensorUpdateEvent{
				SensorUpdateEventMixIn: mixIn,
			})
		}
	}

	return events
}

func BridgeStateToUpdateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
