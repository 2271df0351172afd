package cluster

import (
	"fmt"
	"math/rand"
)

type Summary struct {
	TotalPins      int                `json:"totalPins"`
	NumClusters    int                `json:"numClusters"`
	NumSinglePins  int                `json:"numSinglePins"`
	Rent           RentStats          `json:"rent"`
	VerifiedShare  float64            `json:"verifiedShare"`
	ByLocality     map[string]float64 `json:"byLocality"`
	ByPropertyType map[string]float64 `json:"byPropertyType"`
}

type RentStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Sum     float64 `json:"sum"`
	Average float64 `json:"average"`
}

// Summarize aggregates rent and listing mix over every pin in a partition.
// Distributions are percentages of TotalPins.
func Summarize(p Partition) Summary {
	summary := Summary{
		ByLocality:     make(map[string]float64),
		ByPropertyType: make(map[string]float64),
	}
	if len(p.Groups) == 0 {
		return summary
	}

	localities := make(map[string]int)
	types := make(map[string]int)
	verified := 0
	first := true

	for _, g := range p.Groups {
		if g.IsCluster {
			summary.NumClusters++
		} else {
			summary.NumSinglePins++
		}

		for _, pin := range g.Members {
			summary.TotalPins++
			if first || pin.Rent < summary.Rent.Min {
				summary.Rent.Min = pin.Rent
			}
			if first || pin.Rent > summary.Rent.Max {
				summary.Rent.Max = pin.Rent
			}
			first = false
			summary.Rent.Sum += pin.Rent

			if pin.Locality != "" {
				localities[pin.Locality]++
			}
			if pin.PropertyType != "" {
				types[pin.PropertyType]++
			}
			if pin.Verified {
				verified++
			}
		}
	}

	if summary.TotalPins == 0 {
		return summary
	}
	total := float64(summary.TotalPins)
	summary.Rent.Average = summary.Rent.Sum / total
	summary.VerifiedShare = float64(verified) / total * 100
	for k, n := range localities {
		summary.ByLocality[k] = float64(n) / total * 100
	}
	for k, n := range types {
		summary.ByPropertyType[k] = float64(n) / total * 100
	}
	return summary
}

var (
	generatedLocalities = []string{"Kothrud", "Baner", "Wakad", "Hadapsar", "Kharadi", "Aundh", "Hinjewadi", "Camp"}
	generatedTypes      = []string{"apartment", "house", "studio", "room"}
	generatedSchemes    = []string{"EWS", "LIG", "MIG", "HIG"}
)

// GeneratePins builds n synthetic listings from a fixed seed, for profiling
// and benchmarks.
func GeneratePins(n int, seed int64) PinSet {
	r := rand.New(rand.NewSource(seed))
	pins := make(PinSet, n)

	for i := 0; i < n; i++ {
		bedrooms := 1 + r.Intn(4)
		pins[i] = PropertyPin{
			ID:           fmt.Sprintf("gen-%d", i+1),
			Coordinates:  Coordinates{Top: r.Float64() * 100, Left: r.Float64() * 100},
			Rent:         float64(5000 + r.Intn(45)*1000),
			Title:        fmt.Sprintf("%d BHK listing %d", bedrooms, i+1),
			Locality:     generatedLocalities[r.Intn(len(generatedLocalities))],
			City:         "Pune",
			Bedrooms:     bedrooms,
			Bathrooms:    1 + r.Intn(bedrooms),
			AreaSqft:     300 + bedrooms*300 + r.Intn(200),
			PropertyType: generatedTypes[r.Intn(len(generatedTypes))],
			Eligibility:  []string{generatedSchemes[r.Intn(len(generatedSchemes))]},
			Verified:     r.Intn(4) != 0,
		}
	}
	return pins
}
