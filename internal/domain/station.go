package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// earthRadiusKm is the mean Earth radius used to convert angular distances.
const earthRadiusKm = 6371.01

// Station describes one Mesonet site from the geoinfo metadata file.
type Station struct {
	ID             string // STID, upper-case canonical form
	Number         int    // STNM
	Name           string
	County         string
	Lat            float64 // EPSG:4269 geographic degrees
	Lon            float64
	Elevation      float64   // meters
	Commissioned   time.Time // datc
	Decommissioned time.Time // datd; far-future for active stations
}

// Active reports whether the station was collecting data for the whole of
// [start, end].
func (s Station) Active(start, end time.Time) bool {
	return !start.Before(s.Commissioned) && !end.After(s.Decommissioned)
}

// LatLng returns the station position as an s2 point on the unit sphere.
func (s Station) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(s.Lat, s.Lon)
}

// DistanceKm returns the great-circle distance to another station in
// kilometers.
func (s Station) DistanceKm(o Station) float64 {
	return distanceKm(s.LatLng(), o.LatLng())
}

func distanceKm(a, b s2.LatLng) float64 {
	return angleKm(a.Distance(b))
}

func angleKm(a s1.Angle) float64 {
	return a.Radians() * earthRadiusKm
}

// BoundingBox is a geographic rectangle in the pyshp ordering:
// low longitude, low latitude, high longitude, high latitude.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// Pad grows (or shrinks) the box about its center by the given factor.
// A factor of 1 leaves the box unchanged; non-positive factors are ignored.
func (b BoundingBox) Pad(factor float64) BoundingBox {
	if factor == 1 || factor <= 0 {
		return b
	}
	lonPad := factor * (b.MaxLon - b.MinLon) / 2
	latPad := factor * (b.MaxLat - b.MinLat) / 2
	return BoundingBox{
		MinLon: b.MinLon - lonPad,
		MinLat: b.MinLat - latPad,
		MaxLon: b.MaxLon + lonPad,
		MaxLat: b.MaxLat + latPad,
	}
}

// Contains reports whether the point lies strictly inside the box.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat > b.MinLat && lat < b.MaxLat && lon > b.MinLon && lon < b.MaxLon
}

// Geographic reports whether the box plausibly holds lat/lon degrees rather
// than projected coordinates. Projected shapefiles (meters, feet) produce
// values far outside the valid degree ranges, so this catches most mistakes.
func (b BoundingBox) Geographic() bool {
	abs := func(v float64) float64 {
		if v < 0 {
			return -v
		}
		return v
	}
	return abs(b.MinLon) <= 180 && abs(b.MaxLon) <= 180 &&
		abs(b.MinLat) <= 90 && abs(b.MaxLat) <= 90
}

// StationSet holds the parsed geoinfo metadata and answers the geographic
// queries the downloader and cleaning tools need.
type StationSet struct {
	stations []Station
	byID     map[string]int
}

// NewStationSet builds a set from parsed metadata rows.
func NewStationSet(stations []Station) *StationSet {
	set := &StationSet{
		stations: stations,
		byID:     make(map[string]int, len(stations)),
	}
	for i, s := range stations {
		set.byID[strings.ToUpper(s.ID)] = i
	}
	return set
}

// Len returns the number of stations in the set.
func (ss *StationSet) Len() int { return len(ss.stations) }

// All returns every station in metadata order.
func (ss *StationSet) All() []Station { return ss.stations }

// Get looks up a station by STID, case-insensitively.
func (ss *StationSet) Get(stid string) (Station, error) {
	i, ok := ss.byID[strings.ToUpper(stid)]
	if !ok {
		return Station{}, fmt.Errorf("unknown station %q; valid IDs: %s", stid, strings.Join(ss.IDs(), " "))
	}
	return ss.stations[i], nil
}

// IDs returns every STID in metadata order.
func (ss *StationSet) IDs() []string {
	ids := make([]string, len(ss.stations))
	for i, s := range ss.stations {
		ids[i] = s.ID
	}
	return ids
}

// WithinBox returns the stations strictly inside the (already padded) box,
// in metadata order.
func (ss *StationSet) WithinBox(box BoundingBox) []Station {
	var out []Station
	for _, s := range ss.stations {
		if box.Contains(s.Lat, s.Lon) {
			out = append(out, s)
		}
	}
	return out
}

// Neighbor pairs a station with its distance from some reference point.
type Neighbor struct {
	Station    Station
	DistanceKm float64
}

// Nearest returns every other station ordered by great-circle distance from
// the named station, nearest first. Ties break on STID so the ordering is
// deterministic.
func (ss *StationSet) Nearest(stid string) ([]Neighbor, error) {
	origin, err := ss.Get(stid)
	if err != nil {
		return nil, err
	}
	neighbors := make([]Neighbor, 0, len(ss.stations)-1)
	for _, s := range ss.stations {
		if strings.EqualFold(s.ID, origin.ID) {
			continue
		}
		neighbors = append(neighbors, Neighbor{Station: s, DistanceKm: origin.DistanceKm(s)})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].DistanceKm != neighbors[j].DistanceKm {
			return neighbors[i].DistanceKm < neighbors[j].DistanceKm
		}
		return neighbors[i].Station.ID < neighbors[j].Station.ID
	})
	return neighbors, nil
}

// NearestToPoint returns every station ordered by distance from an arbitrary
// lat/lon point, nearest first.
func (ss *StationSet) NearestToPoint(lat, lon float64) []Neighbor {
	origin := s2.LatLngFromDegrees(lat, lon)
	neighbors := make([]Neighbor, 0, len(ss.stations))
	for _, s := range ss.stations {
		neighbors = append(neighbors, Neighbor{Station: s, DistanceKm: distanceKm(origin, s.LatLng())})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].DistanceKm != neighbors[j].DistanceKm {
			return neighbors[i].DistanceKm < neighbors[j].DistanceKm
		}
		return neighbors[i].Station.ID < neighbors[j].Station.ID
	})
	return neighbors
}
