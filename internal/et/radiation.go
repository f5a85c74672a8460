package et

import (
	"math"
	"time"
)

// dailyRadiation estimates net radiation (MJ/m2/day) from measured
// downwelling radiation, the day's temperature extremes (K), and vapor
// pressure (kPa). ASCE equations 15-18 and 42-47.
func (c *Calculator) dailyRadiation(t time.Time, solar, tminK, tmaxK, pv float64) float64 {
	julian := float64(t.YearDay())
	lat := rad(c.lat)

	// solar declination and inverse relative Earth-Sun distance
	decl := 23.45 * rad(math.Cos(2*math.Pi/365*(julian-172)))
	invDist := 1 + 0.033*math.Cos(2*math.Pi/365*julian)

	// sunset hour angle and extraterrestrial radiation
	sha := math.Acos(-math.Tan(lat) * math.Tan(decl))
	etRad := 37.59 * invDist * (sha*math.Sin(lat)*math.Sin(decl) +
		math.Cos(lat)*math.Cos(decl)*math.Sin(sha))

	// clear sky radiation at this elevation
	clear := (0.00002*c.elevation + 0.75) * etRad

	shortwave := solar * (1 - albedo)
	longwave := sigmaDaily * 0.5 * (math.Pow(tminK, 4) + math.Pow(tmaxK, 4)) *
		(0.34 - 0.139*math.Sqrt(pv)) *
		(1.35*solar/clear - 0.35)

	return shortwave - longwave
}

// hourlyRadiation estimates net radiation (MJ/m2/hour) for the interval
// starting at t. ASCE equations 42-63.
func (c *Calculator) hourlyRadiation(t time.Time, solar, tempK, pv, stepHours float64) float64 {
	julian := float64(t.YearDay())
	lat := rad(c.lat)

	decl := rad(0.409 * math.Cos(2*math.Pi/365*julian-1.39))
	invDist := 1 + 0.033*math.Cos(2*math.Pi/365*julian)

	// seasonal correction for solar time
	b := 2 * math.Pi * (julian - 81) / 364
	sc := 0.1645*math.Sin(2*b) - 0.1255*math.Cos(b) - 0.025*math.Sin(b)

	// longitude at the center of the time zone
	lz := 15 * math.Round(c.lon/15)

	// sunset hour angle
	ws := math.Acos(-math.Tan(lat) * math.Tan(decl))

	// solar time angle at the midpoint of the interval
	clockHours := float64(t.Hour()) + float64(t.Minute())/60
	w := math.Pi / 12 * (clockHours + stepHours/2 + (c.lon-lz)/15 + sc - 12)

	// clip the interval's bounding angles to the daylight window
	w1 := math.Max(w-math.Pi*stepHours/24, -ws)
	w2 := math.Min(math.Max(w+math.Pi*stepHours/24, -ws), ws)
	w1 = math.Min(w1, w2)

	// extraterrestrial and clear sky radiation for the interval
	ra := 12 / math.Pi * solarConst * invDist *
		((w2-w1)*math.Sin(lat)*math.Sin(decl) +
			math.Cos(lat)*math.Cos(decl)*(math.Sin(w2)-math.Sin(w1)))
	rso := (0.00002*c.elevation + 0.75) * ra

	// sun angle above the horizon at the interval midpoint
	beta := math.Asin(math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Cos(w))

	// cloudiness factor; the clear-sky ratio is only meaningful when the sun
	// is more than about 17 degrees up (0.3 rad)
	fcd := 0.05
	if rso > 0 && solar/rso > 0.3 && beta > 0.3 {
		fcd = 1.35*(solar/rso) - 0.35
	}

	shortwave := solar * (1 - albedo)
	longwave := sigmaHourly * 0.5 * math.Pow(tempK, 4) * (0.34 - 0.139*math.Sqrt(pv)) * fcd

	return shortwave - longwave
}
