package tools

import (
	"fmt"
	"math"

	"github.com/okmeso/okmeso/internal/domain"
)

// Magnus coefficients from Alduchov and Eskridge (1996).
const (
	magnusA = 17.625
	magnusB = 243.04
)

// CalculateDewpoint derives the TDEW column from air temperature and relative
// humidity with the Magnus-Tetens formula. Rows where either input is missing
// or a sentinel produce NaN; the inputs themselves are left untouched.
func (tk *Toolkit) CalculateDewpoint(t *domain.Table) error {
	tair, err := t.Column("TAIR")
	if err != nil {
		return fmt.Errorf("dewpoint needs air temperature: %w", err)
	}
	relh, err := t.Column("RELH")
	if err != nil {
		return fmt.Errorf("dewpoint needs relative humidity: %w", err)
	}

	tdew := make([]float64, len(tair))
	for i := range tair {
		ta, rh := tair[i], relh[i]
		if domain.IsSentinel(ta) || domain.IsSentinel(rh) {
			tdew[i] = math.NaN()
			continue
		}
		alpha := math.Log(rh/100) + magnusA*ta/(magnusB+ta)
		tdew[i] = magnusB * alpha / (magnusA - alpha)
	}
	return t.SetColumn("TDEW", tdew)
}

// CalculateDewpointSet applies CalculateDewpoint to every table in the set.
func (tk *Toolkit) CalculateDewpointSet(set domain.TableSet) error {
	for _, id := range sortedIDs(set) {
		if err := tk.CalculateDewpoint(set[id]); err != nil {
			return fmt.Errorf("station %s: %w", id, err)
		}
	}
	return nil
}
