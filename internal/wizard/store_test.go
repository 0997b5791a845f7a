package wizard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casework/internal/domain"
)

func sampleState() State {
	return State{
		Step:         StepMembers,
		Registration: domain.Registration{ResponsibleName: "Maria Silva", City: "Recife"},
		Members:      []domain.MemberInput{{Name: "Pedro", Kinship: "Filho", Age: "9"}},
	}
}

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	now := time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.Now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", sampleState()))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	got.Members[0].Name = "changed"
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Pedro", again.Members[0].Name)

	now = now.Add(time.Hour)
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreSweepAndDelete(t *testing.T) {
	now := time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute)
	store.Now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "old", sampleState()))
	now = now.Add(2 * time.Minute)
	require.NoError(t, store.Save(ctx, "new", sampleState()))
	assert.Equal(t, 1, store.Sweep())

	require.NoError(t, store.Delete(ctx, "new"))
	_, err := store.Load(ctx, "new")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// Requires a running Redis; skipped otherwise.
func TestRedisStoreIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	client, err := DialRedis(ctx, "redis://localhost:6379/0")
	if err != nil {
		t.Skip("Skipping Redis integration test: redis not available")
	}
	defer client.Close()

	store := NewRedisStore(client, time.Minute)
	id := uuid.NewString()
	require.NoError(t, store.Save(ctx, id, sampleState()))
	got, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), got)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
