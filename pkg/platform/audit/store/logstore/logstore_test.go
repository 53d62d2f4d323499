package logstore

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "carebridge/pkg/domain"
	audit "carebridge/pkg/platform/audit"
)

func TestPublishDecodesRelayedRows(t *testing.T) {
	var buf bytes.Buffer
	store := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	therapistID := id.NewTherapistID()

	raw, err := audit.Encode(audit.Event{
		Timestamp:   time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC),
		TherapistID: therapistID,
		Action:      string(audit.EventVerificationDecided),
		Stage:       "license",
		Decision:    "approved",
		ActorID:     "ops@carebridge.test",
	})
	require.NoError(t, err)

	require.NoError(t, store.Publish(context.Background(), nil, "verification_decided", raw))
	out := buf.String()
	assert.Contains(t, out, `"action":"verification_decided"`)
	assert.Contains(t, out, therapistID.String())
	assert.Contains(t, out, `"actor_id":"ops@carebridge.test"`)
}

func TestPublishRejectsGarbage(t *testing.T) {
	store := New(slog.New(slog.DiscardHandler))
	assert.Error(t, store.Publish(context.Background(), nil, "x", []byte("{")))
}
