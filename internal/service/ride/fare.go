package ride

import (
	"math"

	"github.com/Temutjin2k/ride-coordination/internal/domain/models"
	"github.com/Temutjin2k/ride-coordination/internal/domain/types"
)

const fareCurrency = "KZT"

// Тарифы: базовая ставка + цена за километр
var fareRates = map[types.VehicleClass]struct {
	Base  float64
	PerKm float64
}{
	types.EconomyClass: {Base: 500, PerKm: 120},
	types.PremiumClass: {Base: 900, PerKm: 220},
	types.XLClass:      {Base: 700, PerKm: 170},
}

// estimateFare prices the ride by straight-line distance. Good enough as a
// fallback when the driver app does not report a metered fare on completion.
func estimateFare(pickup, dropoff models.Location, class types.VehicleClass) *models.FareData {
	rate, ok := fareRates[class]
	if !ok {
		rate = fareRates[types.EconomyClass]
	}

	dist := haversineKm(pickup.Latitude, pickup.Longitude, dropoff.Latitude, dropoff.Longitude)
	amount := rate.Base + rate.PerKm*dist

	return &models.FareData{
		Amount:     math.Round(amount*100) / 100,
		Currency:   fareCurrency,
		DistanceKm: math.Round(dist*100) / 100,
	}
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0

	rad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
