package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floodcast/rainfall-resolver/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 1, 10, 15, 10, 0, 0, time.UTC)
	result := domain.ResolvedRainfall{
		Location: domain.Location{Lat: 5.79, Lon: 102.56},
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Month:    time.January,
		Daily: &domain.Figure{
			PrecipMM: 12.5,
			Provider: "chirps",
			Window:   domain.SingleDay(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)),
		},
		ResolvedAt: now,
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("5.7900,102.5600,0|2024-01-10"), msg.Key)
	assert.Contains(t, string(msg.Value), `"precip_mm":12.5`)
	assert.Contains(t, string(msg.Value), `"provider":"chirps"`)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "unresolved", msg.Headers[0].Key)
	assert.Equal(t, []byte("false"), msg.Headers[0].Value)
	assert.Equal(t, "resolved_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_UnresolvedHeader(t *testing.T) {
	result := domain.ResolvedRainfall{
		Location: domain.Location{Lat: 5.79, Lon: 102.56},
		Date:     time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Diagnostics: []domain.Failure{
			{Provider: "imerg", Kind: domain.ErrorTransport},
		},
		ResolvedAt: time.Date(2024, 1, 10, 15, 10, 0, 0, time.UTC),
	}

	msg, err := serializeToMessage(result)
	require.NoError(t, err)

	assert.Equal(t, []byte("true"), msg.Headers[0].Value)
	assert.Contains(t, string(msg.Value), `"daily":null`)
	assert.Contains(t, string(msg.Value), `"kind":"transport"`)
}
