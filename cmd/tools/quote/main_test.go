package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spacefoot/pricer/internal/quote"
)

func TestParseOffers(t *testing.T) {
	offers, err := parseOffers(" shop-a=12.90, shop-b = 13.1 ")
	require.NoError(t, err)
	require.Equal(t, []quote.Offer{{Name: "shop-a", Price: 12.90}, {Name: "shop-b", Price: 13.1}}, offers)

	offers, err = parseOffers("")
	require.NoError(t, err)
	require.Nil(t, offers)

	_, err = parseOffers("shop-a")
	require.Error(t, err)
	_, err = parseOffers("=3")
	require.Error(t, err)
	_, err = parseOffers("shop-a=cheap")
	require.Error(t, err)
}

func TestOptionalPrice(t *testing.T) {
	v, err := optionalPrice("")
	require.NoError(t, err)
	require.Nil(t, v)

	v, err = optionalPrice(" 8.5 ")
	require.NoError(t, err)
	require.Equal(t, 8.5, *v)

	_, err = optionalPrice("eight")
	require.Error(t, err)
}
