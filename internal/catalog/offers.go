package catalog

import (
	"sort"

	"github.com/johnrirwin/devicedeck/internal/models"
)

// DetailOfferLimit is how many offers the product page shows
const DetailOfferLimit = 3

// RankOffers returns a copy of offers ordered by ascending price with
// unpriced offers last, truncated to limit when limit > 0
func RankOffers(offers []models.VendorOffer, limit int) []models.VendorOffer {
	ranked := make([]models.VendorOffer, len(offers))
	copy(ranked, offers)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Price, ranked[j].Price
		if a <= 0 || b <= 0 {
			return a > 0 && b <= 0
		}
		return a < b
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// BestOffer is the cheapest priced, in-stock offer
func BestOffer(offers []models.VendorOffer) *models.VendorOffer {
	var best *models.VendorOffer
	for i := range offers {
		o := &offers[i]
		if o.Price <= 0 || !o.InStock {
			continue
		}
		if best == nil || o.Price < best.Price {
			best = o
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}
