package validation

import (
	"errors"
	"math"
)

var (
	ErrInvalidPrice      = errors.New("validation: price must be greater than zero")
	ErrInvalidPercentage = errors.New("validation: offer percentage must be greater than 0 and at most 100")
	ErrOfferOutOfRange   = errors.New("validation: offer price must be at least 0 and below the price")
)

// OfferPrice derives the discounted price as round(price * (1 - pct/100)).
// The result must stay within [0, price).
func OfferPrice(price, percentage float64) (float64, error) {
	if !finite(price) || price <= 0 {
		return 0, ErrInvalidPrice
	}
	if !finite(percentage) || percentage <= 0 || percentage > 100 {
		return 0, ErrInvalidPercentage
	}
	offer := math.Round(price * (1 - percentage/100))
	if offer < 0 || offer >= price {
		return 0, ErrOfferOutOfRange
	}
	return offer, nil
}

// OfferPercentage re-derives the discount percentage from an offer price,
// rounded to two decimals.
func OfferPercentage(price, offer float64) (float64, error) {
	if !finite(price) || price <= 0 {
		return 0, ErrInvalidPrice
	}
	if !finite(offer) || offer < 0 || offer >= price {
		return 0, ErrOfferOutOfRange
	}
	pct := (1 - offer/price) * 100
	return math.Round(pct*100) / 100, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
