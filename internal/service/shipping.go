package service

import "strings"

// Flat shipping rates in KES. Counties not listed fall back to the
// domestic rate; destinations outside Kenya pay the international rate.
var countyRates = map[string]float64{
	"nairobi":     200,
	"kiambu":      300,
	"kajiado":     300,
	"machakos":    350,
	"nakuru":      400,
	"mombasa":     450,
	"kisumu":      450,
	"uasin gishu": 450,
	"nyeri":       400,
	"meru":        450,
}

const (
	domesticRate      = 500
	internationalRate = 2500
)

// ShippingRate returns the flat shipping cost for a destination.
func ShippingRate(country, county string) float64 {
	if !strings.EqualFold(strings.TrimSpace(country), "kenya") {
		return internationalRate
	}
	if rate, ok := countyRates[strings.ToLower(strings.TrimSpace(county))]; ok {
		return rate
	}
	return domesticRate
}

// ShippingRateForOrder applies the free-shipping threshold on top of the
// flat destination rate.
func (s *OrderService) ShippingRateForOrder(country, county string, subtotal float64) float64 {
	if s.settings.FreeShippingThreshold > 0 && subtotal >= s.settings.FreeShippingThreshold {
		return 0
	}
	return ShippingRate(country, county)
}
