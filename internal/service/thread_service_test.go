package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"campusmarket/internal/domain"
	"campusmarket/internal/service"
)

func TestOpenThread(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "seller", domain.RoleMember)
	buyer := e.user(t, "buyer", domain.RoleMember)
	other := e.user(t, "other", domain.RoleMember)
	l := e.listing(t, seller, "Oak Desk", 75)

	t.Run("Idempotent", func(t *testing.T) {
		first, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: l.ID, SellerID: seller.ID})
		require.NoError(t, err)
		second, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: l.ID, SellerID: seller.ID})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("SelfMessage", func(t *testing.T) {
		_, err := e.threads.Open(ctx, seller, service.OpenThreadInput{ListingID: l.ID, SellerID: seller.ID})
		assert.ErrorIs(t, err, domain.ErrSelfMessage)
	})

	t.Run("MissingFields", func(t *testing.T) {
		_, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: l.ID})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ListingNotFound", func(t *testing.T) {
		_, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: "missing", SellerID: seller.ID})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SellerMustOwnListing", func(t *testing.T) {
		_, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: l.ID, SellerID: other.ID})
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "sellerId")
	})
}

func TestOpenThreadConcurrently(t *testing.T) {
	e := newEnv(t)
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	seller := e.user(t, "seller", domain.RoleMember)
	buyer := e.user(t, "buyer", domain.RoleMember)
	l := e.listing(t, seller, "Oak Desk", 75)

	const n = 10
	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			th, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: l.ID, SellerID: seller.ID})
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
	threads, err := e.threads.List(ctx, buyer)
	require.NoError(t, err)
	assert.Len(t, threads, 1)
}

func TestThreadMessaging(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "seller", domain.RoleMember)
	buyer := e.user(t, "buyer", domain.RoleMember)
	outsider := e.user(t, "outsider", domain.RoleMember)
	desk := e.listing(t, seller, "Oak Desk", 75)
	lamp := e.listing(t, seller, "Desk Lamp", 15)

	deskThread, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: desk.ID, SellerID: seller.ID})
	require.NoError(t, err)
	lampThread, err := e.threads.Open(ctx, buyer, service.OpenThreadInput{ListingID: lamp.ID, SellerID: seller.ID})
	require.NoError(t, err)

	t.Run("SendValidation", func(t *testing.T) {
		_, err := e.threads.Send(ctx, buyer, deskThread.ID, service.SendMessageInput{Text: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("SendForbidden", func(t *testing.T) {
		_, err := e.threads.Send(ctx, outsider, deskThread.ID, service.SendMessageInput{Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		_, err = e.threads.Detail(ctx, outsider, deskThread.ID)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("SendNotFound", func(t *testing.T) {
		_, err := e.threads.Send(ctx, buyer, "missing", service.SendMessageInput{Text: "hi"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SendMovesThreadToTop", func(t *testing.T) {
		list, err := e.threads.List(ctx, buyer)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, lampThread.ID, list[0].ID)

		m, err := e.threads.Send(ctx, buyer, deskThread.ID, service.SendMessageInput{Text: " Still available? "})
		require.NoError(t, err)
		assert.Equal(t, "Still available?", m.Text)
		assert.Equal(t, "User buyer", *m.Sender.Name)
		assert.Nil(t, m.ReadAt)

		list, err = e.threads.List(ctx, buyer)
		require.NoError(t, err)
		assert.Equal(t, deskThread.ID, list[0].ID)
	})

	t.Run("TextIsEncryptedAtRest", func(t *testing.T) {
		var stored string
		require.NoError(t, e.db.QueryRow(`SELECT text FROM messages LIMIT 1`).Scan(&stored))
		assert.NotContains(t, stored, "Still available?")
	})

	t.Run("DetailMarksOnlyOtherPartyRead", func(t *testing.T) {
		_, err := e.threads.Send(ctx, seller, deskThread.ID, service.SendMessageInput{Text: "Yes it is"})
		require.NoError(t, err)

		detail, err := e.threads.Detail(ctx, buyer, deskThread.ID)
		require.NoError(t, err)
		require.Len(t, detail.Messages, 2)
		assert.Equal(t, "Still available?", detail.Messages[0].Text)
		assert.Equal(t, "Yes it is", detail.Messages[1].Text)
		assert.Equal(t, "Oak Desk", detail.Thread.Listing.Title)

		msgs, err := e.repos.Messages.ListForThread(ctx, deskThread.ID)
		require.NoError(t, err)
		assert.Nil(t, msgs[0].ReadAt, "buyer's own message stays unread")
		assert.NotNil(t, msgs[1].ReadAt)

		list, err := e.threads.List(ctx, seller)
		require.NoError(t, err)
		for _, ov := range list {
			if ov.ID == deskThread.ID {
				assert.Equal(t, 1, ov.UnreadCount)
				assert.Equal(t, "Yes it is", ov.LastMessage.Text)
			}
		}
	})
}

// Seller lists a desk, a buyer finds it by price range, they talk, and the
// desk drops out of search once sold.
func TestMarketplaceScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s := e.user(t, "seller", domain.RoleMember)
	b := e.user(t, "buyer", domain.RoleMember)

	l := e.listing(t, s, "IKEA Desk", 75.00)
	require.Equal(t, domain.StatusActive, l.Status)

	page, err := e.listings.Search(ctx, b, domain.ListingFilter{MinPrice: ptr(50.0), MaxPrice: ptr(100.0), Category: l.Category})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, l.ID, page.Listings[0].ID)

	page, err = e.listings.Search(ctx, b, domain.ListingFilter{MaxPrice: ptr(50.0)})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	th, err := e.threads.Open(ctx, b, service.OpenThreadInput{ListingID: l.ID, SellerID: s.ID})
	require.NoError(t, err)
	_, err = e.threads.Send(ctx, b, th.ID, service.SendMessageInput{Text: "Is this still available?"})
	require.NoError(t, err)

	list, err := e.threads.List(ctx, s)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "Is this still available?", list[0].LastMessage.Text)
	assert.Equal(t, 1, list[0].UnreadCount)

	_, err = e.threads.Detail(ctx, s, th.ID)
	require.NoError(t, err)
	msgs, err := e.repos.Messages.ListForThread(ctx, th.ID)
	require.NoError(t, err)
	assert.NotNil(t, msgs[0].ReadAt)

	_, err = e.listings.Update(ctx, s, l.ID, service.UpdateListingInput{Status: ptr(domain.StatusSold)})
	require.NoError(t, err)
	page, err = e.listings.Search(ctx, b, domain.ListingFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
}
