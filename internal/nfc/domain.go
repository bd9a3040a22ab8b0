package nfc

import "time"

// Acknowledgment classification values.
const (
	SubmissionReplacement      = "replacement"
	SubmissionExistingCustomer = "existing_customer"
	SubmissionNewCustomer      = "new_customer"

	DeliveryOfficeReceival = "office_receival"
	DeliveryOctaneEmployee = "octane_employee"
	DeliveryAramex         = "aramex"

	StateOnTime = "on_time"
	StateLate   = "late"
)

// History periods.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// Allocation is a grant of cards to an account.
type Allocation struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Allocated    int       `json:"allocated"`
	DayAllocated time.Time `json:"day_allocated"`
}

// NewAcknowledgment carries a validated submission ready to persist.
type NewAcknowledgment struct {
	UserID         int64
	CompanyID      int64
	CardsSubmitted int
	SubmissionType string
	DeliveryMethod string
	StateTime      string
	Image          string
}

// Acknowledgment is a persisted card submission.
type Acknowledgment struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	CompanyID      int64     `json:"company_id"`
	CardsSubmitted int       `json:"cards_submitted"`
	SubmissionType string    `json:"submission_type"`
	DeliveryMethod string    `json:"delivery_method"`
	StateTime      string    `json:"state_time"`
	Image          string    `json:"image"`
	SubmissionDate time.Time `json:"submission_date"`
}

// Totals are the four aggregates behind a balance.
type Totals struct {
	AllocatedCurrent int
	SubmittedCurrent int
	AllocatedPrior   int
	SubmittedPrior   int
}

// Balance is the usable card balance for the current month.
type Balance struct {
	UserID    int64  `json:"user_id"`
	Period    string `json:"period"`
	Available int    `json:"available"`
	Submitted int    `json:"submitted"`
	Remaining int    `json:"remaining"`
	CarryOver int    `json:"carry_over"`
}

// HistoryEntry is one acknowledgment as listed in history views.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Date           string    `json:"date"`
	SubmittedAt    time.Time `json:"submitted_at"`
	CompanyID      int64     `json:"company_id"`
	CompanyCode    string    `json:"company_code"`
	CompanyName    string    `json:"company_name"`
	CardsSubmitted int       `json:"cards_submitted"`
	SubmissionType string    `json:"submission_type"`
	DeliveryMethod string    `json:"delivery_method"`
	StateTime      string    `json:"state_time"`
	Image          string    `json:"image"`
}

// History is a history listing with the window it covers.
type History struct {
	UserID  int64          `json:"user_id"`
	Period  string         `json:"period"`
	From    *time.Time     `json:"from,omitempty"`
	To      *time.Time     `json:"to,omitempty"`
	Entries []HistoryEntry `json:"entries"`
}

// PurgeTarget is an acknowledgment selected for a purge.
type PurgeTarget struct {
	ID    int64
	Image string
}

// ImageDeletion is the outcome of one image delete during a purge.
type ImageDeletion struct {
	URL     string
	Deleted bool
	Err     error
}

// PurgeResult summarises a month purge.
type PurgeResult struct {
	Month           string `json:"month"`
	Deleted         int64  `json:"deleted"`
	ImagesAttempted int    `json:"images_attempted"`
	ImagesDeleted   int    `json:"images_deleted"`
	ImagesFailed    int    `json:"images_failed"`
}
