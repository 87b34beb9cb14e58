package cases

import "time"

// Human-readable timestamp layouts stored on cases and history entries.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

const (
	DefaultPriority = "Normal"
	systemActor     = "System"
)

// Case is a merchant-onboarding record.
type Case struct {
	ID                 string         `json:"case_id"`
	BusinessName       string         `json:"business_name"`
	BusinessType       string         `json:"business_type"`
	RegistrationNumber string         `json:"registration_number"`
	MerchantCategory   string         `json:"merchant_category"`
	BusinessAddress    string         `json:"business_address"`
	DirectorName       string         `json:"director_name"`
	DirectorIC         string         `json:"director_ic"`
	DirectorPhone      string         `json:"director_phone"`
	DirectorEmail      string         `json:"director_email"`
	Status             Status         `json:"status"`
	AssignedTo         string         `json:"assigned_to,omitempty"`
	Priority           string         `json:"priority"`
	CreatedDate        string         `json:"created_date"`
	LastUpdated        string         `json:"last_updated"`
	Documents          []Document     `json:"documents"`
	History            []HistoryEntry `json:"history"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// Document is metadata of a file attached to a case.
type Document struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// HistoryEntry is one immutable audit record of a case.
type HistoryEntry struct {
	Time   string `json:"time"`
	Action string `json:"action"`
}

// Input carries caller-provided fields for create and update.
// A nil Status means no status change on update and the default on create.
type Input struct {
	ID                 string     `json:"case_id,omitempty"`
	BusinessName       string     `json:"business_name"`
	BusinessType       string     `json:"business_type"`
	RegistrationNumber string     `json:"registration_number"`
	MerchantCategory   string     `json:"merchant_category"`
	BusinessAddress    string     `json:"business_address"`
	DirectorName       string     `json:"director_name"`
	DirectorIC         string     `json:"director_ic"`
	DirectorPhone      string     `json:"director_phone"`
	DirectorEmail      string     `json:"director_email"`
	Status             *Status    `json:"status,omitempty"`
	AssignedTo         string     `json:"assigned_to,omitempty"`
	Priority           string     `json:"priority,omitempty"`
	CreatedDate        string     `json:"created_date,omitempty"`
	Documents          []Document `json:"documents,omitempty"`
}

// Clone returns a deep copy so callers cannot alias stored slices.
func (c Case) Clone() Case {
	out := c
	if c.Documents != nil {
		out.Documents = append([]Document(nil), c.Documents...)
	}
	if c.History != nil {
		out.History = append([]HistoryEntry(nil), c.History...)
	}
	return out
}
