package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"fruit-vision/internal/domain/entity"
)

func TestMemorySessionRepository_GetCreatesSession(t *testing.T) {
	repo := NewMemorySessionRepository(0.4)
	ctx := context.Background()

	session, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, session.State)
	require.Equal(t, 0.4, session.Confidence)
}

func TestMemorySessionRepository_SavePersists(t *testing.T) {
	repo := NewMemorySessionRepository(0.4)
	ctx := context.Background()

	session, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)

	session.SetState(entity.StateAwaitingMedia)
	session.SetConfidence(0.6)
	require.NoError(t, repo.Save(ctx, session))

	stored, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingMedia, stored.State)
	require.Equal(t, 0.6, stored.Confidence)
}
