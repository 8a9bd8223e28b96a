package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, Init("loud"))
}

func TestInitOnce(t *testing.T) {
	require.NoError(t, Init("debug", zap.String("app", "inventario")))
	first := Log

	require.NoError(t, Init("error"))
	assert.Same(t, first, Log)
}
