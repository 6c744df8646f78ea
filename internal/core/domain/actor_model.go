package domain

import (
	"time"

	"github.com/berfenger/growattext2mqtt/pkg/growatt"
)

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_SNAPSHOT     = "snapshot"
	ACTOR_ID_READINGS     = "readings"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

type GetDevicesInfoRequest struct {
	ActorRequestMixIn
}

type GetDevicesInfoResponse struct {
	ActorResponseMixIn
	Entry *growatt.EntryInfo
}

type GetSnapshotRequest struct {
	ActorRequestMixIn
}

type GetSnapshotResponse struct {
	ActorResponseMixIn
	Snapshot growatt.Snapshot
}

type GetReadingsRequest struct {
	ActorRequestMixIn
}

type GetReadingsResponse struct {
	ActorResponseMixIn
	EntryId    string
	Readings   []Reading
	SnapshotOk bool
	UpdatedAt  time.Time
}

type RefreshReadingsRequest struct {
	ActorRequestMixIn
}

type RefreshDiscoveryRequest struct {
	ActorRequestMixIn
}

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Buttons []GenericButton
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
