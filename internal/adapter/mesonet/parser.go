package mesonet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okmeso/okmeso/internal/domain"
)

// ErrNoData marks a day file that exists but holds no observations. The
// Mesonet serves an empty body when a station collected nothing that day.
var ErrNoData = errors.New("no data for station on this day")

// mtsPreambleLines is the number of lines before the column-name row in an
// MTS file (copyright line and station/date stamp).
const mtsPreambleLines = 2

// ParseGeoInfo parses the station metadata CSV served by the siteinfo API.
func ParseGeoInfo(r io.Reader) ([]domain.Station, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read geoinfo header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"stid", "nlat", "elon"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("geoinfo is missing the %q column", required)
		}
	}

	var stations []domain.Station
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read geoinfo row: %w", err)
		}

		s := domain.Station{
			ID:     strings.ToUpper(field(rec, col, "stid")),
			Name:   field(rec, col, "name"),
			County: field(rec, col, "cnty"),
		}
		if s.ID == "" {
			continue
		}
		if s.Lat, err = strconv.ParseFloat(field(rec, col, "nlat"), 64); err != nil {
			return nil, fmt.Errorf("station %s: bad nlat: %w", s.ID, err)
		}
		if s.Lon, err = strconv.ParseFloat(field(rec, col, "elon"), 64); err != nil {
			return nil, fmt.Errorf("station %s: bad elon: %w", s.ID, err)
		}
		if v := field(rec, col, "stnm"); v != "" {
			s.Number, _ = strconv.Atoi(v)
		}
		if v := field(rec, col, "elev"); v != "" {
			s.Elevation, _ = strconv.ParseFloat(v, 64)
		}
		s.Commissioned = parseMetaDate(field(rec, col, "datc"))
		s.Decommissioned = parseMetaDate(field(rec, col, "datd"))
		if s.Decommissioned.IsZero() {
			// Active stations carry a far-future decommission date.
			s.Decommissioned = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)
		}
		stations = append(stations, s)
	}
	if len(stations) == 0 {
		return nil, errors.New("geoinfo holds no stations")
	}
	return stations, nil
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func parseMetaDate(s string) time.Time {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseMTS parses one station-day MTS file into a table. Row timestamps are
// the file date plus the TIME column in minutes past midnight UTC. The STID,
// STNM, and TIME columns are consumed rather than kept as data columns.
func ParseMTS(r io.Reader, stid string, day time.Time) (*domain.Table, error) {
	sc := bufio.NewScanner(r)

	for i := 0; i < mtsPreambleLines; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return nil, fmt.Errorf("read mts preamble: %w", err)
			}
			return nil, ErrNoData
		}
	}

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read mts columns: %w", err)
		}
		return nil, ErrNoData
	}
	names := strings.Fields(sc.Text())
	if len(names) == 0 {
		return nil, ErrNoData
	}

	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[strings.ToUpper(n)] = i
	}
	timeCol, ok := idx["TIME"]
	if !ok {
		return nil, errors.New("mts file has no TIME column")
	}

	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	table := domain.NewTable(strings.ToUpper(stid))
	data := make([][]float64, len(names))

	rows := 0
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != len(names) {
			return nil, fmt.Errorf("mts row %d has %d fields, expected %d", rows+1, len(fields), len(names))
		}

		minutes, err := strconv.Atoi(fields[timeCol])
		if err != nil {
			return nil, fmt.Errorf("mts row %d: bad TIME %q: %w", rows+1, fields[timeCol], err)
		}
		table.Times = append(table.Times, midnight.Add(time.Duration(minutes)*time.Minute))

		for i, raw := range fields {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				// Non-numeric cells (the STID column, stray text) become NaN
				// in numeric columns and are dropped with them below.
				v = math.NaN()
			}
			data[i] = append(data[i], v)
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read mts rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrNoData
	}

	for i, name := range names {
		name = strings.ToUpper(name)
		// STNM and TIME are bookkeeping; STID lives on the table itself.
		if name == "STID" || name == "STNM" || name == "TIME" {
			continue
		}
		if err := table.SetColumn(name, data[i]); err != nil {
			return nil, err
		}
	}
	return table, nil
}
