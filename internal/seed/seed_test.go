package seed_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/seed"
	"campusmarket/internal/store"
)

func TestRunIsIdempotent(t *testing.T) {
	db, err := store.Open(store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "seed.db"))
	require.NoError(t, err)
	defer db.Close()
	repos, err := store.New(store.DriverSQLite, db)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

	res, err := seed.Run(ctx, repos, now, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Users: 3, Listings: 5}, res)

	res, err = seed.Run(ctx, repos, now, zap.NewNop())
	require.NoError(t, err)
	assert.Zero(t, res)

	admin, err := repos.Users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	total, err := repos.Listings.Count(ctx, domain.ListingFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)

	page, err := repos.Listings.Search(ctx, domain.ListingFilter{Search: "desk"}.Normalize())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, 75.0, page[0].Price)
}
