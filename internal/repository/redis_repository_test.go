package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "grievance:")
	var dest map[string]int

	err := repo.Get(context.Background(), "dashboard", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "dashboard", map[string]int{"total": 1}, time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "dashboard"))
}

func TestLockRepositoryWithoutClient(t *testing.T) {
	repo := NewLockRepository(nil, "grievance:lock:")

	release, err := repo.Acquire(context.Background(), "escalation-sweep", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.NoError(t, release(context.Background()))
}
