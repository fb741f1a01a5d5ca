package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "settlement", Level: zerolog.DebugLevel, Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithSessionID(ctx, "cs_test_1")
	ctx = log.WithOrderID(ctx, "order-1")
	log.Error(ctx, "reconcile failed", errors.New("gateway unavailable"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "settlement", e["service"])
	assert.Equal(t, "req-123", e["request_id"])
	assert.Equal(t, "cs_test_1", e["session_id"])
	assert.Equal(t, "order-1", e["order_id"])
	assert.Equal(t, "gateway unavailable", e["error"])
	assert.NotEmpty(t, e["stack"])
}

func TestRepeatedKeyReplacesValue(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	ctx := log.WithUserID(context.Background(), "anonymous")
	ctx = log.WithUserID(ctx, "user-1")
	log.Info(ctx, "offer placed")

	assert.Equal(t, 1, strings.Count(buf.String(), `"user_id"`))
	assert.Equal(t, "user-1", decodeLines(t, buf)[0]["user_id"])
}

func TestSiblingContextsDoNotShareFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})

	parent := log.WithListingID(context.Background(), "listing-1")
	a := log.WithOfferID(parent, "offer-a")
	_ = log.WithOfferID(parent, "offer-b")
	log.Info(a, "accepted")

	assert.Equal(t, "offer-a", decodeLines(t, buf)[0]["offer_id"])
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "test", Output: buf, WarnStack: true}).Warn(context.Background(), "slow sweep")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	New(Options{ServiceName: "test", Output: buf}).Warn(context.Background(), "slow sweep")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	log.Debug(log.WithOfferID(context.Background(), "offer-1"), "hidden")
	assert.Empty(t, buf.String())
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}
