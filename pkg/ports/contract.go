package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyago/parley/pkg/domain"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		session := domain.NewSession(sessionID, "user-a", time.Now().UTC().Truncate(time.Second))
		session.JoinerID = "user-b"

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.ID, loaded.ID)
		assert.Equal(t, "user-a", loaded.InitiatorID)
		assert.Equal(t, "user-b", loaded.JoinerID)
		assert.True(t, loaded.Active)
		// JSON round-trips may lose sub-second precision; compare at second granularity.
		assert.WithinDuration(t, session.StartTime, loaded.StartTime, time.Second)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		session := domain.NewSession(sessionID, "user-a", time.Now())
		require.NoError(t, store.Save(ctx, session))

		session.JoinerID = "user-c"
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, "user-c", loaded.JoinerID)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(sessionID, "user-a", time.Now())))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("Delete Non-Existent", func(t *testing.T) {
		// Deleting an absent record is a no-op, not an error.
		assert.NoError(t, store.Delete(ctx, "non-existent-"+sessionID))
	})

	t.Run("List", func(t *testing.T) {
		ids := []string{sessionID + "-list-1", sessionID + "-list-2"}
		for _, id := range ids {
			require.NoError(t, store.Save(ctx, domain.NewSession(id, "user-a", time.Now())))
		}

		listed, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, listed, id)
		}

		for _, id := range ids {
			require.NoError(t, store.Delete(ctx, id))
		}
	})
}
