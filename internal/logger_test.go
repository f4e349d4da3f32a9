package internal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "info")

	logger.Info().Str("cart_key", "abc").Msg("saved")
	logger.Debug().Msg("hidden")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "saved", line["message"])
	assert.Equal(t, "abc", line["cart_key"])
	assert.Contains(t, line, "time")
}

func TestNewLogger_InvalidLevelWarnsAndUsesInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "prod", "loud")

	assert.Contains(t, buf.String(), "Invalid log level")
	buf.Reset()
	logger.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestNewLogger_DevUsesConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "dev", "debug")

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestGooseLogger_Printf(t *testing.T) {
	var buf bytes.Buffer
	g := gooseLogger{logger: NewLogger(&buf, "prod", "info")}

	g.Printf("OK   %s (%s)\n", "00001_create_products.sql", "12ms")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "OK   00001_create_products.sql (12ms)", line["message"])
}
