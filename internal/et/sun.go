package et

import (
	"math"
	"time"
)

// sunriseZenith is the sun's zenith distance at sunrise and sunset (90°50').
const sunriseZenith = 90.83

// Sun estimates the local sunrise and sunset for the date of t at the
// calculator's location, following the "Almanac for Computers" (1990, US
// Naval Observatory) algorithm. The time zone offset is approximated from
// the longitude, which is plenty for deciding day versus night.
func (c *Calculator) Sun(t time.Time) (sunrise, sunset time.Time) {
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())

	rise := c.sunEvent(t, 6, true)
	set := c.sunEvent(t, 18, false)

	sunrise = midnight.Add(time.Duration(rise * float64(time.Hour)))
	sunset = midnight.Add(time.Duration(set * float64(time.Hour)))
	return sunrise, sunset
}

// sunEvent returns the local clock hour of sunrise or sunset.
func (c *Calculator) sunEvent(t time.Time, approxHour float64, rising bool) float64 {
	n := float64(t.YearDay())
	lonHour := c.lon / 15

	// approximate event time in fractional days
	at := n + (approxHour-lonHour)/24

	// mean anomaly and true longitude of the sun
	m := 360/365.25*at - 3.289
	l := m + 1.916*math.Sin(rad(m)) + 0.02*math.Sin(2*rad(m)) + 282.634
	if l < 0 {
		l += 360
	}
	if l > 360 {
		l -= 360
	}

	// right ascension, forced into the same quadrant as l, in hours
	ra := 180 / math.Pi * math.Atan(0.91764*math.Tan(rad(l)))
	ra += math.Floor(l/90)*90 - math.Floor(ra/90)*90
	ra /= 15

	// solar declination and local hour angle
	sinDec := 0.39782 * math.Sin(rad(l))
	cosDec := math.Cos(math.Asin(sinDec))
	cosH := (math.Cos(rad(sunriseZenith)) - sinDec*math.Sin(rad(c.lat))) /
		(cosDec * math.Cos(rad(c.lat)))

	var h float64
	if rising {
		h = 360 - 180/math.Pi*math.Acos(cosH)
	} else {
		h = 180 / math.Pi * math.Acos(cosH)
	}
	h /= 15

	// local mean time of the event, shifted to UTC then to the zone the
	// longitude implies; wintertime zones sit one hour further west
	localMean := h + ra - 0.06571*at - 6.622
	utc := localMean - lonHour
	offset := math.Round(c.lon / 15)
	if t.Month() < time.March || t.Month() > time.October {
		offset--
	}

	local := utc + offset
	if local < 0 {
		local += 24
	}
	if local > 24 {
		local -= 24
	}
	return local
}

// isDaytime reports whether the sun is up at t.
func (c *Calculator) isDaytime(t time.Time) bool {
	sunrise, sunset := c.Sun(t)
	return !t.Before(sunrise) && t.Before(sunset)
}
