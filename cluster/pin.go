package cluster

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidPin = errors.New("invalid pin")

// ClusterIDPrefix starts every cluster id. Pin ids may not use it.
const ClusterIDPrefix = "cluster-"

// Coordinates is a screen-relative percentage position, each axis in [0,100].
type Coordinates struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// PropertyPin is one rental listing placed on the map. Pins are immutable
// once loaded.
type PropertyPin struct {
	ID           string      `json:"id"`
	Coordinates  Coordinates `json:"coordinates"`
	Rent         float64     `json:"rent"`
	Title        string      `json:"title"`
	Address      string      `json:"address"`
	Locality     string      `json:"locality"`
	City         string      `json:"city"`
	Bedrooms     int         `json:"bedrooms"`
	Bathrooms    int         `json:"bathrooms"`
	AreaSqft     int         `json:"areaSqft"`
	Image        string      `json:"image"`
	PropertyType string      `json:"propertyType"`
	Eligibility  []string    `json:"eligibility"`
	Verified     bool        `json:"verified"`
}

// PinSet is the ordered, fixed list a map renders. Order matters: the greedy
// builder seeds groups in this order.
type PinSet []PropertyPin

// Lookup finds a pin by id.
func (s PinSet) Lookup(id string) (PropertyPin, bool) {
	for _, p := range s {
		if p.ID == id {
			return p, true
		}
	}
	return PropertyPin{}, false
}

// Validate reports the first pin with an empty, duplicate or cluster-like id
// or with coordinates outside [0,100].
func (s PinSet) Validate() error {
	seen := make(map[string]struct{}, len(s))
	for i, p := range s {
		if p.ID == "" {
			return fmt.Errorf("pin %d: empty id: %w", i, ErrInvalidPin)
		}
		if strings.HasPrefix(p.ID, ClusterIDPrefix) {
			return fmt.Errorf("pin %s: reserved id prefix %q: %w", p.ID, ClusterIDPrefix, ErrInvalidPin)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("pin %s: duplicate id: %w", p.ID, ErrInvalidPin)
		}
		seen[p.ID] = struct{}{}
		if !inPercentRange(p.Coordinates.Top) || !inPercentRange(p.Coordinates.Left) {
			return fmt.Errorf("pin %s: coordinates (%v,%v) out of range: %w",
				p.ID, p.Coordinates.Top, p.Coordinates.Left, ErrInvalidPin)
		}
	}
	return nil
}

func inPercentRange(v float64) bool {
	return v >= 0 && v <= 100
}

// distance is the Euclidean distance between two positions in the plane.
// Every radius test in the package goes through here so the linear scan and
// the tree agree bit for bit.
func distance(a, b Coordinates) float64 {
	return math.Hypot(a.Top-b.Top, a.Left-b.Left)
}
