package domain

// ErrorCode is a Mesonet sentinel value standing in for a measurement that was
// not collected or failed quality assurance.
type ErrorCode int

const (
	CodeTooWide       ErrorCode = -994 // value too wide to fit in its column
	CodeOffInterval   ErrorCode = -995 // data not reported on this time interval
	CodeDidNotReport  ErrorCode = -996 // station did not report
	CodeNoCalibration ErrorCode = -997 // missing calibration coefficients
	CodeNotInstalled  ErrorCode = -998 // sensor not installed
	CodeQAFailed      ErrorCode = -999 // flagged bad by QA routines
)

// ErrorCodes lists every sentinel code, most negative last, matching the
// ordering used in summaries.
var ErrorCodes = []ErrorCode{
	CodeTooWide,
	CodeOffInterval,
	CodeDidNotReport,
	CodeNoCalibration,
	CodeNotInstalled,
	CodeQAFailed,
}

var errorCodeDescriptions = map[ErrorCode]string{
	CodeTooWide:       "value too wide to fit in column",
	CodeOffInterval:   "data not reported on this time interval",
	CodeDidNotReport:  "station did not report",
	CodeNoCalibration: "missing calibration coefficients",
	CodeNotInstalled:  "sensor not installed",
	CodeQAFailed:      "flagged bad by QA routines",
}

// Description returns the human-readable meaning of the code, or "" for
// values that are not sentinel codes.
func (c ErrorCode) Description() string {
	return errorCodeDescriptions[c]
}

// ValidErrorCode reports whether code is one of the reserved sentinel values.
func ValidErrorCode(code ErrorCode) bool {
	_, ok := errorCodeDescriptions[code]
	return ok
}

// IsSentinel reports whether v is one of the reserved sentinel values.
// Sentinels are always written as whole numbers, so an exact comparison
// is safe on float64.
func IsSentinel(v float64) bool {
	return ValidErrorCode(ErrorCode(int(v))) && v == float64(int(v))
}
