package reports

import "time"

// Export formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// Row is one acknowledgment in the admin report.
type Row struct {
	ID             int64     `json:"id"`
	UserName       string    `json:"user_name"`
	CompanyName    string    `json:"company_name"`
	CompanyCode    string    `json:"company_code"`
	CardsSubmitted int       `json:"cards_submitted"`
	SubmissionType string    `json:"submission_type"`
	DeliveryMethod string    `json:"delivery_method"`
	StateTime      string    `json:"state_time"`
	Image          string    `json:"image"`
	SubmissionDate time.Time `json:"submission_date"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Report is the acknowledgment report for an inclusive date range.
type Report struct {
	From       string `json:"from"`
	To         string `json:"to"`
	TotalCards int    `json:"total_cards"`
	Rows       []Row  `json:"rows"`
}

var header = []string{
	"ID", "User", "Company", "Company Code", "Cards Submitted",
	"Submission Type", "Delivery Method", "State", "Image", "Submission Date",
}
