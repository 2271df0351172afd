package api

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"web/rentmap/runner"
)

// FeatureCollection renders a view's groups as GeoJSON points in the map
// plane, x = left and y = top. The bbox is the visible window clamped to the
// plane.
func FeatureCollection(v runner.View) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	p := v.Partition
	fc.BBox = geojson.NewBBox(orb.Bound{
		Min: orb.Point{clampPlane(p.Center.X - p.Radius), clampPlane(p.Center.Y - p.Radius)},
		Max: orb.Point{clampPlane(p.Center.X + p.Radius), clampPlane(p.Center.Y + p.Radius)},
	})

	selectedPin, _ := v.Selection.PinID()
	expanded, _ := v.Selection.ClusterID()

	for _, g := range p.Groups {
		f := geojson.NewFeature(orb.Point{g.Position.Left, g.Position.Top})
		f.ID = g.ID
		f.Properties["id"] = g.ID
		f.Properties["cluster"] = g.IsCluster
		f.Properties["point_count"] = g.Count
		f.Properties["average_rent"] = g.AverageRent

		if g.IsCluster {
			ids := make([]string, len(g.Members))
			for i, m := range g.Members {
				ids[i] = m.ID
			}
			f.Properties["members"] = ids
			f.Properties["expanded"] = g.ID == expanded
		} else {
			pin := g.Members[0]
			f.Properties["title"] = pin.Title
			f.Properties["locality"] = pin.Locality
			f.Properties["verified"] = pin.Verified
			f.Properties["selected"] = pin.ID == selectedPin
			f.Properties["hovered"] = pin.ID == v.Hovered
		}
		fc.Append(f)
	}
	return fc
}

func clampPlane(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
