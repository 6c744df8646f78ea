package growatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFirstRecord(t *testing.T) {

	assert := assert.New(t)

	assert.Empty(Snapshot{}.Storage(), "missing list")
	assert.Empty(Snapshot{FieldStorageList: []any{}}.Storage(), "empty list")
	assert.Empty(Snapshot{FieldStorageList: []any{"oops"}}.Storage(), "not a record")
	assert.Empty(Snapshot{FieldDatalogList: "oops"}.Datalog(), "not a list")

	s := Snapshot{FieldStorageList: []any{
		map[string]any{FieldCapacity: "10%"},
		map[string]any{FieldCapacity: "90%"},
	}}
	assert.Equal("10%", s.Storage()[FieldCapacity], "first element is used")

	var nilSnapshot Snapshot
	assert.True(nilSnapshot.Empty())
	assert.Empty(nilSnapshot.Datalog())
}

func TestDataloggerTranslations(t *testing.T) {

	assert := assert.New(t)

	assert.Equal("Excellent", DataloggerSignalToString("优"))
	assert.Equal("Good", DataloggerSignalToString("良"))
	assert.Equal("Fair", DataloggerSignalToString("中"))
	assert.Equal("Poor", DataloggerSignalToString("差"))
	assert.Equal("极好", DataloggerSignalToString("极好"), "unknown token passes through")

	assert.Equal("Connected", DataloggerStatusToString("已连接"))
	assert.Equal("Disconnected", DataloggerStatusToString("未连接"))
	assert.Equal("", DataloggerStatusToString(""))
}
