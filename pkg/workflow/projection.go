package workflow

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/validation"
)

// OfferProjection keeps the service offer fields consistent. Editing price or
// offer_percentage recomputes offer_price; editing offer_price re-derives the
// percentage. Incomplete or out of range inputs leave the dependents alone.
func OfferProjection(changed string, values map[string]string) map[string]string {
	price, ok := number(values["price"])
	if !ok {
		return nil
	}
	switch changed {
	case "price", "offer_percentage":
		pct, ok := number(values["offer_percentage"])
		if !ok {
			return nil
		}
		offer, err := validation.OfferPrice(price, pct)
		if err != nil {
			return nil
		}
		return map[string]string{"offer_price": formatNumber(offer)}
	case "offer_price":
		offer, ok := number(values["offer_price"])
		if !ok {
			return nil
		}
		pct, err := validation.OfferPercentage(price, offer)
		if err != nil {
			return nil
		}
		return map[string]string{"offer_percentage": formatNumber(pct)}
	}
	return nil
}

func number(raw string) (float64, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(trimmed, 64)
	return n, err == nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
