package companies

// Company is a customer organisation cards are delivered to.
type Company struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Entry is one reconciled spreadsheet row.
type Entry struct {
	Name string
	Code string
}

// Import modes.
const (
	ModeAdd     = "add"
	ModeReplace = "replace"
)

// ImportResult summarises a bulk import.
type ImportResult struct {
	Mode     string `json:"mode"`
	Rows     int    `json:"rows"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
	Removed  int64  `json:"duplicates_removed"`
}
