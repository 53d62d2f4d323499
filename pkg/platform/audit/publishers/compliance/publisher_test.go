package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "carebridge/pkg/domain"
	audit "carebridge/pkg/platform/audit"
	"carebridge/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("disk full")
}

func TestEmitPersistsWithDerivedCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(store, WithMetrics(m))
	therapistID := id.NewTherapistID()

	err := pub.Emit(context.Background(), audit.Event{
		TherapistID: therapistID,
		Action:      string(audit.EventVerificationDecided),
		Stage:       "final",
		Decision:    "approved",
	})
	require.NoError(t, err)

	events, err := store.ListByTherapist(context.Background(), therapistID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsEmitted))
}

func TestEmitRequiresFields(t *testing.T) {
	pub := New(memory.NewInMemoryStore())
	assert.Error(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	assert.Error(t, pub.Emit(context.Background(), audit.Event{TherapistID: id.NewTherapistID()}))
}

func TestEmitFailsClosed(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	pub := New(failingStore{}, WithMetrics(m))

	err := pub.Emit(context.Background(), audit.Event{
		TherapistID: id.NewTherapistID(),
		Action:      string(audit.EventVerificationDecided),
	})
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PersistFailures))
}
