package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campusmarket/internal/contentfilter"
	"campusmarket/internal/domain"
	"campusmarket/internal/security"
	"campusmarket/internal/service"
	"campusmarket/internal/store"
	"campusmarket/internal/validation"
)

var base = time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

// tickingClock advances one second per reading so every write gets a
// distinct, ordered timestamp.
type tickingClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type env struct {
	db        *sql.DB
	repos     *store.Repositories
	clock     *tickingClock
	listings  *service.ListingService
	threads   *service.ThreadService
	favorites *service.FavoriteService
	reports   *service.ReportService
	users     *service.UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := store.Open(store.DriverSQLite, "file:"+filepath.Join(t.TempDir(), "svc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repos, err := store.New(store.DriverSQLite, db)
	require.NoError(t, err)

	enc, err := security.NewEncryptor([]byte("test-encryption-key"))
	require.NoError(t, err)

	v := validation.New()
	log := zap.NewNop()
	clock := &tickingClock{t: base}

	e := &env{
		db:        db,
		repos:     repos,
		clock:     clock,
		listings:  service.NewListingService(repos.Listings, v, contentfilter.New(), log),
		threads:   service.NewThreadService(repos.Threads, repos.Messages, repos.Listings, repos.Users, enc, v, log),
		favorites: service.NewFavoriteService(repos.Favorites, repos.Listings, v),
		reports:   service.NewReportService(repos.Reports, repos.Listings, repos.Users, v, log),
		users:     service.NewUserService(repos.Users, v, log),
	}
	e.listings.Now = clock.Now
	e.threads.Now = clock.Now
	e.favorites.Now = clock.Now
	e.reports.Now = clock.Now
	e.users.Now = clock.Now
	return e
}

func (e *env) user(t *testing.T, id string, role domain.Role) domain.Identity {
	t.Helper()
	name := "User " + id
	u := &domain.User{
		ID:        id,
		Email:     id + "@campus.edu",
		Name:      &name,
		Role:      role,
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, e.repos.Users.Create(context.Background(), u))
	return domain.IdentityOf(u)
}

func (e *env) listing(t *testing.T, seller domain.Identity, title string, price float64) *domain.Listing {
	t.Helper()
	l, err := e.listings.Create(context.Background(), seller, service.CreateListingInput{
		Title:       title,
		Description: "Gently used, pick up near the library.",
		Price:       price,
		Category:    "Furniture",
		Condition:   domain.ConditionGood,
		Location:    domain.LocationOnCampus,
		Images:      []string{"https://img.example.com/item.jpg"},
	})
	require.NoError(t, err)
	return l
}

func ptr[T any](v T) *T { return &v }
