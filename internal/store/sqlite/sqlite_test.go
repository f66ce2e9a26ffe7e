package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"campusmarket/internal/domain"
	"campusmarket/internal/store/sqlite"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open("file:" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, db *sql.DB, id string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        id,
		Email:     id + "@campus.edu",
		Name:      strPtr("User " + id),
		Role:      domain.RoleMember,
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, sqlite.NewUserRepo(db).Create(context.Background(), u))
	return u
}

func seedListing(t *testing.T, db *sql.DB, id, sellerID, title string, price float64, at time.Time) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		ID:          id,
		Title:       title,
		Description: "a perfectly fine item for sale",
		Price:       price,
		Category:    "Furniture",
		Condition:   domain.ConditionGood,
		Location:    domain.LocationOnCampus,
		Images:      []string{"https://img.example.com/" + id + ".jpg"},
		Status:      domain.StatusActive,
		SellerID:    sellerID,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, sqlite.NewListingRepo(db).Create(context.Background(), l))
	return l
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newDB(t)
	assert.NoError(t, sqlite.Migrate(db))
}

func TestUserRepo(t *testing.T) {
	db := newDB(t)
	repo := sqlite.NewUserRepo(db)
	ctx := context.Background()

	u := seedUser(t, db, "u1")

	t.Run("DuplicateEmail", func(t *testing.T) {
		dup := &domain.User{ID: "u2", Email: u.Email, Role: domain.RoleMember, CreatedAt: base, UpdatedAt: base}
		assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrConflict)
	})

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := repo.GetByEmail(ctx, "u1@campus.edu")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, domain.RoleMember, got.Role)
	})

	t.Run("Update", func(t *testing.T) {
		year := 2026
		u.Major = strPtr("Physics")
		u.GradYear = &year
		u.Role = domain.RoleAdmin
		require.NoError(t, repo.Update(ctx, u))

		got, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "Physics", *got.Major)
		assert.Equal(t, 2026, *got.GradYear)
		assert.Equal(t, domain.RoleAdmin, got.Role)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, repo.Update(ctx, &domain.User{ID: "missing", Role: domain.RoleMember}), domain.ErrNotFound)
	})
}

func TestListingRepoSearch(t *testing.T) {
	db := newDB(t)
	repo := sqlite.NewListingRepo(db)
	ctx := context.Background()

	seedUser(t, db, "s1")
	seedUser(t, db, "s2")
	for i := 0; i < 25; i++ {
		seller := "s1"
		if i%5 == 0 {
			seller = "s2"
		}
		seedListing(t, db, fmt.Sprintf("l%02d", i), seller, fmt.Sprintf("Desk %d", i), float64(10+i), base.Add(time.Duration(i)*time.Minute))
	}

	t.Run("PageAndCountShareThePredicate", func(t *testing.T) {
		min := 15.0
		f := domain.ListingFilter{MinPrice: &min, Page: 2, Limit: 7}
		rows, err := repo.Search(ctx, f)
		require.NoError(t, err)
		total, err := repo.Count(ctx, f)
		require.NoError(t, err)

		assert.Equal(t, 20, total)
		assert.Len(t, rows, 7)
		assert.LessOrEqual(t, len(rows), 7)
		for _, l := range rows {
			assert.GreaterOrEqual(t, l.Price, 15.0)
		}
	})

	t.Run("NewestFirst", func(t *testing.T) {
		rows, err := repo.Search(ctx, domain.ListingFilter{Limit: 3})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, []string{"l24", "l23", "l22"}, []string{rows[0].ID, rows[1].ID, rows[2].ID})
	})

	t.Run("CaseInsensitiveSearch", func(t *testing.T) {
		f := domain.ListingFilter{Search: "dESK 1"}
		total, err := repo.Count(ctx, f)
		require.NoError(t, err)
		// Desk 1 and Desk 10..19
		assert.Equal(t, 11, total)
	})

	t.Run("InvertedPriceRangeMatchesNothing", func(t *testing.T) {
		min, max := 30.0, 20.0
		f := domain.ListingFilter{MinPrice: &min, MaxPrice: &max}
		rows, err := repo.Search(ctx, f)
		require.NoError(t, err)
		assert.Empty(t, rows)
		total, err := repo.Count(ctx, f)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("SellerFilterAndSummary", func(t *testing.T) {
		rows, err := repo.Search(ctx, domain.ListingFilter{SellerID: "s2", Limit: 100})
		require.NoError(t, err)
		assert.Len(t, rows, 5)
		for _, l := range rows {
			assert.Equal(t, "s2", l.Seller.ID)
			assert.Equal(t, "User s2", *l.Seller.Name)
			assert.Nil(t, l.Seller.Email)
		}
	})

	t.Run("StatusFilter", func(t *testing.T) {
		l, err := repo.GetByID(ctx, "l00")
		require.NoError(t, err)
		l.Status = domain.StatusSold
		require.NoError(t, repo.Update(ctx, l))

		active, err := repo.Count(ctx, domain.ListingFilter{})
		require.NoError(t, err)
		assert.Equal(t, 24, active)

		sold, err := repo.Count(ctx, domain.ListingFilter{Statuses: []domain.ListingStatus{domain.StatusSold}})
		require.NoError(t, err)
		assert.Equal(t, 1, sold)
	})

	t.Run("UnknownEnumMatchesNothing", func(t *testing.T) {
		total, err := repo.Count(ctx, domain.ListingFilter{Condition: "BROKEN"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("FarPageIsEmpty", func(t *testing.T) {
		rows, err := repo.Search(ctx, domain.ListingFilter{Page: math.MaxInt64 / 10, Limit: 100})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	// SQLite LOWER and LIKE fold ASCII only.
	t.Run("NonASCIIFoldsBytewise", func(t *testing.T) {
		seedListing(t, db, "l-accent", "s1", "Émile lamp", 5, base.Add(-time.Hour))

		for search, want := range map[string]int{"Émile": 1, "LAMP": 1, "émile": 0, "ÉMILE": 0} {
			total, err := repo.Count(ctx, domain.ListingFilter{Search: search})
			require.NoError(t, err)
			assert.Equal(t, want, total, search)
		}
	})
}

func TestListingRepoGetByID(t *testing.T) {
	db := newDB(t)
	repo := sqlite.NewListingRepo(db)
	ctx := context.Background()

	seedUser(t, db, "s1")
	seedListing(t, db, "l1", "s1", "Lamp", 12.5, base)

	got, err := repo.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Title)
	assert.Equal(t, 12.5, got.Price)
	assert.Equal(t, []string{"https://img.example.com/l1.jpg"}, got.Images)
	assert.Equal(t, "s1@campus.edu", *got.Seller.Email)
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFavoriteRepo(t *testing.T) {
	db := newDB(t)
	repo := sqlite.NewFavoriteRepo(db)
	ctx := context.Background()

	seedUser(t, db, "s1")
	seedUser(t, db, "b1")
	seedListing(t, db, "l1", "s1", "Lamp", 12.5, base)

	fav := &domain.Favorite{UserID: "b1", ListingID: "l1", CreatedAt: base}
	require.NoError(t, repo.Create(ctx, fav))
	assert.ErrorIs(t, repo.Create(ctx, fav), domain.ErrConflict)

	list, err := repo.ListForUser(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Lamp", list[0].Listing.Title)
	assert.Equal(t, 1, list[0].Listing.FavoriteCount)

	require.NoError(t, repo.Delete(ctx, "b1", "l1"))
	assert.ErrorIs(t, repo.Delete(ctx, "b1", "l1"), domain.ErrNotFound)
	assert.NoError(t, repo.Create(ctx, fav))
}

func TestReportRepo(t *testing.T) {
	db := newDB(t)
	repo := sqlite.NewReportRepo(db)
	ctx := context.Background()

	seedUser(t, db, "r1")
	seedUser(t, db, "admin")

	first := &domain.Report{ID: "rep1", TargetType: domain.TargetUser, TargetID: "admin",
		Reason: "posting spam everywhere", ReporterID: "r1", CreatedAt: base}
	require.NoError(t, repo.Create(ctx, first))

	second := *first
	second.ID = "rep2"
	assert.ErrorIs(t, repo.Create(ctx, &second), domain.ErrConflict)

	open, err := repo.ListUnresolved(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "User r1", *open[0].Reporter.Name)

	require.NoError(t, repo.Resolve(ctx, "rep1", "admin", base.Add(time.Hour)))
	assert.ErrorIs(t, repo.Resolve(ctx, "rep1", "admin", base.Add(time.Hour)), domain.ErrConflict)
	assert.ErrorIs(t, repo.Resolve(ctx, "missing", "admin", base), domain.ErrNotFound)

	got, err := repo.GetByID(ctx, "rep1")
	require.NoError(t, err)
	assert.True(t, got.Resolved())
	assert.Equal(t, "admin", *got.ResolvedBy)

	// Resolved reports no longer block a new one.
	assert.NoError(t, repo.Create(ctx, &second))
}

func TestThreadAndMessageRepos(t *testing.T) {
	db := newDB(t)
	threads := sqlite.NewThreadRepo(db)
	messages := sqlite.NewMessageRepo(db)
	ctx := context.Background()

	seedUser(t, db, "s1")
	seedUser(t, db, "b1")
	seedListing(t, db, "l1", "s1", "Lamp", 12.5, base)
	seedListing(t, db, "l2", "s1", "Chair", 20, base)

	t1 := &domain.Thread{ID: "t1", BuyerID: "b1", SellerID: "s1", ListingID: "l1", CreatedAt: base, UpdatedAt: base}
	t2 := &domain.Thread{ID: "t2", BuyerID: "b1", SellerID: "s1", ListingID: "l2", CreatedAt: base, UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, threads.Create(ctx, t1))
	require.NoError(t, threads.Create(ctx, t2))

	dup := *t1
	dup.ID = "t3"
	assert.ErrorIs(t, threads.Create(ctx, &dup), domain.ErrConflict)

	got, err := threads.GetByParticipants(ctx, "b1", "s1", "l1")
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	msgs := []*domain.Message{
		{ID: "m1", ThreadID: "t1", SenderID: "b1", Text: "hi", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "m2", ThreadID: "t1", SenderID: "s1", Text: "hello", CreatedAt: base.Add(3 * time.Minute)},
		{ID: "m3", ThreadID: "t1", SenderID: "s1", Text: "still there?", CreatedAt: base.Add(4 * time.Minute)},
	}
	for _, m := range msgs {
		require.NoError(t, messages.Create(ctx, m))
	}
	require.NoError(t, threads.Touch(ctx, "t1", base.Add(4*time.Minute)))

	t.Run("OverviewForBuyer", func(t *testing.T) {
		list, err := threads.ListForUser(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "t1", list[0].ID)
		assert.Equal(t, 2, list[0].UnreadCount)
		require.NotNil(t, list[0].LastMessage)
		assert.Equal(t, "m3", list[0].LastMessage.ID)
		assert.Equal(t, "Lamp", list[0].Listing.Title)
		assert.Nil(t, list[1].LastMessage)
	})

	t.Run("OverviewForSeller", func(t *testing.T) {
		ov, err := threads.GetOverview(ctx, "t1", "s1")
		require.NoError(t, err)
		assert.Equal(t, 1, ov.UnreadCount)
		assert.Equal(t, "User b1", *ov.Buyer.Name)
	})

	t.Run("ListOldestFirst", func(t *testing.T) {
		list, err := messages.ListForThread(ctx, "t1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "m1", list[0].ID)
		assert.Equal(t, "User b1", *list[0].Sender.Name)
	})

	t.Run("MarkReadSkipsOwnMessages", func(t *testing.T) {
		n, err := messages.MarkRead(ctx, "t1", "b1", base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		list, err := messages.ListForThread(ctx, "t1")
		require.NoError(t, err)
		assert.Nil(t, list[0].ReadAt)
		assert.NotNil(t, list[1].ReadAt)
		assert.NotNil(t, list[2].ReadAt)

		n, err = messages.MarkRead(ctx, "t1", "b1", base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("TouchMissing", func(t *testing.T) {
		assert.ErrorIs(t, threads.Touch(ctx, "nope", base), domain.ErrNotFound)
	})
}

func TestThreadCreateRace(t *testing.T) {
	db := newDB(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	threads := sqlite.NewThreadRepo(db)
	ctx := context.Background()

	seedUser(t, db, "s1")
	seedUser(t, db, "b1")
	seedListing(t, db, "l1", "s1", "Lamp", 12.5, base)

	const n = 8
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th := &domain.Thread{ID: fmt.Sprintf("t%d", i), BuyerID: "b1", SellerID: "s1", ListingID: "l1", CreatedAt: base, UpdatedAt: base}
			err := threads.Create(ctx, th)
			if errors.Is(err, domain.ErrConflict) {
				th, err = threads.GetByParticipants(ctx, "b1", "s1", "l1")
			}
			errs[i] = err
			if th != nil {
				ids[i] = th.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
}
