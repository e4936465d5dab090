package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	Set(zap.New(core))

	Request("req-1", "dog.jpg").Info("detect")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-1", fields["request_id"])
		assert.Equal(t, "dog.jpg", fields["item_id"])
	}
	assert.Same(t, Log(), zap.L())
}

func TestInit(t *testing.T) {
	assert.NoError(t, Init(true))
	assert.NotNil(t, S())
	assert.NoError(t, Init(false))
	Sync()
}
