// Package domain models Oklahoma Mesonet climate station data.
//
// # Data Source
//
// The Oklahoma Mesonet operates roughly 120 environmental monitoring stations,
// at least one in each of Oklahoma's 77 counties, reporting every 5 minutes.
// Raw data is served by the Mesonet web interface as one MTS file per station
// per day:
//
//	dataMdfMts/dataController/getFile/{YYYYMMDD}{stid}/mts/DOWNLOAD/
//
// Station metadata (the "geoinfo" file) comes from
//
//	api/siteinfo/from_all_active_with_geo_fields/format/csv/
//
// and carries the station identifier (STID), name, county, geographic
// coordinates (EPSG:4269), elevation, and commissioning/decommissioning dates
// in YYYYMMDD form. STIDs are upper-case in the metadata but lower-case in
// download URLs; this package treats them case-insensitively and stores the
// upper-case form.
//
// # MTS File Conventions
//
// An MTS file has two preamble lines (copyright and a station/date stamp)
// followed by a whitespace-separated table. The first table row holds column
// names; every later row is one 5-minute observation. The TIME column counts
// minutes past midnight UTC, so row times are reconstructed as the file date
// plus TIME minutes. An empty file means the station collected no data that
// day, which is not an error.
//
// The RAIN column accumulates through the day and resets at midnight. The
// downloader converts it to per-interval differences; when the first reading
// of a day still carries the previous day's accumulation it is zeroed.
//
// # Sentinel Codes
//
// Measurements that were not collected or failed quality assurance are encoded
// as reserved negative values rather than being omitted:
//
//	-999  flagged bad by QA routines
//	-998  sensor not installed
//	-997  missing calibration coefficients
//	-996  station did not report
//	-995  data not reported on this time interval
//	-994  value too wide for its column
//
// -995 is routine: several variables are only sampled every 15 or 30 minutes,
// so the intervening 5-minute slots carry -995 by design. Cleaning code skips
// -995 when copying from neighboring stations, since no station reports on
// those intervals.
//
// Derived columns (TDEW, EVAP) are computed locally and never present in
// source files, so they are excluded from neighbor copying as well.
package domain
