package port

import (
	"github.com/berfenger/growattext2mqtt/internal/core/domain"
	"github.com/berfenger/growattext2mqtt/pkg/growatt"
)

type ReadingDeriver interface {
	Definitions() []domain.ReadingDefinition
	Derive(snapshot growatt.Snapshot, key string) domain.Value
	DeriveAll(snapshot growatt.Snapshot) []domain.Reading
}
