package excel

// RawRowData is one claims row keyed by the file's header text, before
// aliases are resolved or any field is parsed
type RawRowData map[string]string

// ExcelData is a claims extract as read from a sheet or CSV file.
// ParseClaims maps Headers onto the canonical claim columns.
type ExcelData struct {
	Headers []string
	Rows    []RawRowData
}
