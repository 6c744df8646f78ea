package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckMQTTTopic(t *testing.T) {

	assert := assert.New(t)

	topic, err := CheckMQTTTopic("GrowattExt_1")
	assert.NoError(err)
	assert.Equal("growattext_1", topic)

	_, err = CheckMQTTTopic("growatt/ext")
	assert.Error(err)
	_, err = CheckMQTTTopic("")
	assert.Error(err)
}

func TestCheckEntry(t *testing.T) {

	assert := assert.New(t)
	require := require.New(t)

	entry, err := CheckEntry("", []string{"a1"})
	require.NoError(err)
	assert.Equal("a1", entry)

	entry, err = CheckEntry("b2", []string{"a1", "b2"})
	require.NoError(err)
	assert.Equal("b2", entry)

	_, err = CheckEntry("", []string{"a1", "b2"})
	assert.ErrorIs(err, ErrInvalidEntry)

	_, err = CheckEntry("c3", []string{"a1", "b2"})
	assert.ErrorIs(err, ErrInvalidEntry)

	_, err = CheckEntry("", nil)
	assert.ErrorIs(err, ErrNoUpstreamEntries)

	// nothing to validate against
	entry, err = CheckEntry("c3", nil)
	require.NoError(err)
	assert.Equal("c3", entry)
}

func TestCheckUpstreamSource(t *testing.T) {

	assert := assert.New(t)

	assert.ErrorIs(CheckUpstreamSource(UpstreamConfig{}), ErrNoUpstreamSource)
	assert.NoError(CheckUpstreamSource(UpstreamConfig{Url: "http://localhost:8123"}))
	assert.NoError(CheckUpstreamSource(UpstreamConfig{File: "snapshot.json"}))
}
