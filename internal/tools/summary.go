package tools

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/okmeso/okmeso/internal/domain"
)

// MissingSummary tallies sentinel codes per column for one station's table.
type MissingSummary struct {
	STID    string
	Columns []string
	Counts  map[string]map[domain.ErrorCode]int

	ColumnTotals map[string]int
	CodeTotals   map[domain.ErrorCode]int

	// Total counts every sentinel; TotalExpected excludes the off-interval
	// code, which is routine rather than a data problem.
	Total         int
	TotalExpected int
}

// SummarizeMissing counts each sentinel code in each column.
func (tk *Toolkit) SummarizeMissing(t *domain.Table) *MissingSummary {
	s := &MissingSummary{
		STID:         t.STID,
		Columns:      t.Columns(),
		Counts:       make(map[string]map[domain.ErrorCode]int),
		ColumnTotals: make(map[string]int),
		CodeTotals:   make(map[domain.ErrorCode]int),
	}
	for _, name := range s.Columns {
		counts := make(map[domain.ErrorCode]int)
		vals, err := t.Column(name)
		if err != nil {
			continue
		}
		for _, v := range vals {
			for _, code := range domain.ErrorCodes {
				if v == float64(code) {
					counts[code]++
				}
			}
		}
		s.Counts[name] = counts
		for _, code := range domain.ErrorCodes {
			s.ColumnTotals[name] += counts[code]
			s.CodeTotals[code] += counts[code]
		}
		s.Total += s.ColumnTotals[name]
	}
	s.TotalExpected = s.Total - s.CodeTotals[domain.CodeOffInterval]
	return s
}

// String renders the summary as the aligned chart users expect from the
// interactive workflow.
func (s *MissingSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Missing data summary for the %s station\n", s.STID)
	fmt.Fprintf(&b, "%d sentinel values total, %d excluding the routine off-interval code %d\n\n",
		s.Total, s.TotalExpected, domain.CodeOffInterval)

	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "\t")
	for _, code := range domain.ErrorCodes {
		fmt.Fprintf(w, "%d\t", code)
	}
	fmt.Fprint(w, "TOTAL\t\n")
	for _, name := range s.Columns {
		fmt.Fprintf(w, "%s\t", name)
		for _, code := range domain.ErrorCodes {
			fmt.Fprintf(w, "%d\t", s.Counts[name][code])
		}
		fmt.Fprintf(w, "%d\t\n", s.ColumnTotals[name])
	}
	fmt.Fprint(w, "TOTAL\t")
	for _, code := range domain.ErrorCodes {
		fmt.Fprintf(w, "%d\t", s.CodeTotals[code])
	}
	fmt.Fprintf(w, "%d\t\n", s.Total)
	w.Flush()
	return b.String()
}
