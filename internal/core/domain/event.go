package domain

import "fmt"

type SensorUpdateEventMixIn struct {
	Id string
}

type SensorUpdateEvent interface {
	SensorUpdateEvent() string
	SensorId() string
}

func (e SensorUpdateEventMixIn) SensorUpdateEvent() string {
	return fmt.Sprintf("%T", e)
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type IntSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value int64
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

// UnknownSensorUpdateEvent clears a sensor state when its value cannot be
// determined.
type UnknownSensorUpdateEvent struct {
	SensorUpdateEventMixIn
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}
