package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	var dest []string

	assert.ErrorIs(t, repo.Get(context.Background(), "reports:x", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "reports:x", []string{"a"}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "reports:*"))
}
