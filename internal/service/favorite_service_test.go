package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/domain"
	"campusmarket/internal/service"
)

func TestFavorites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.user(t, "seller", domain.RoleMember)
	fan := e.user(t, "fan", domain.RoleMember)
	desk := e.listing(t, seller, "Oak Desk", 75)
	lamp := e.listing(t, seller, "Desk Lamp", 15)

	_, err := e.favorites.Add(ctx, fan, service.FavoriteInput{ListingID: desk.ID})
	require.NoError(t, err)
	_, err = e.favorites.Add(ctx, fan, service.FavoriteInput{ListingID: lamp.ID})
	require.NoError(t, err)

	t.Run("Duplicate", func(t *testing.T) {
		_, err := e.favorites.Add(ctx, fan, service.FavoriteInput{ListingID: desk.ID})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("MissingListing", func(t *testing.T) {
		_, err := e.favorites.Add(ctx, fan, service.FavoriteInput{ListingID: "nope"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = e.favorites.Add(ctx, fan, service.FavoriteInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		favs, err := e.favorites.List(ctx, fan)
		require.NoError(t, err)
		require.Len(t, favs, 2)
		assert.Equal(t, lamp.ID, favs[0].ListingID)
		assert.Equal(t, 1, favs[0].Listing.FavoriteCount)
		assert.Nil(t, favs[0].Listing.Seller.Email)
	})

	t.Run("Remove", func(t *testing.T) {
		require.NoError(t, e.favorites.Remove(ctx, fan, desk.ID))
		assert.ErrorIs(t, e.favorites.Remove(ctx, fan, desk.ID), domain.ErrNotFound)

		favs, err := e.favorites.List(ctx, fan)
		require.NoError(t, err)
		assert.Len(t, favs, 1)
	})
}
