package domain

import "time"

// BookingDraft holds the interview-scheduling fields gathered so far.
// Date is YYYY-MM-DD and Time is 24-hour HH:MM once normalized.
type BookingDraft struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Missing returns the names of the empty fields in canonical order.
func (d BookingDraft) Missing() []string {
	var missing []string
	if d.Name == "" {
		missing = append(missing, FieldName)
	}
	if d.Email == "" {
		missing = append(missing, FieldEmail)
	}
	if d.Date == "" {
		missing = append(missing, FieldDate)
	}
	if d.Time == "" {
		missing = append(missing, FieldTime)
	}
	return missing
}

// Complete reports whether every field is present.
func (d BookingDraft) Complete() bool {
	return len(d.Missing()) == 0
}

// Get returns the value of the named field.
func (d BookingDraft) Get(field string) string {
	switch field {
	case FieldName:
		return d.Name
	case FieldEmail:
		return d.Email
	case FieldDate:
		return d.Date
	case FieldTime:
		return d.Time
	}
	return ""
}

// Set assigns the named field. Unknown fields are ignored.
func (d *BookingDraft) Set(field, value string) {
	switch field {
	case FieldName:
		d.Name = value
	case FieldEmail:
		d.Email = value
	case FieldDate:
		d.Date = value
	case FieldTime:
		d.Time = value
	}
}

// Booking is a persisted, immutable interview booking.
type Booking struct {
	BookingID string    `json:"booking_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft returns the booking's scheduling fields.
func (b Booking) Draft() BookingDraft {
	return BookingDraft{Name: b.Name, Email: b.Email, Date: b.Date, Time: b.Time}
}

// Extraction is the outcome of slot extraction for one turn.
type Extraction struct {
	Complete bool         `json:"complete"`
	Data     BookingDraft `json:"data"`
	Missing  []string     `json:"missing_fields"`
	// Source records which strategy produced Data (remote or heuristic).
	Source string `json:"-"`
}

// IntentResult is the classifier's verdict for one message.
type IntentResult struct {
	IsBooking  bool    `json:"is_booking"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// PolicyDecision is the admission verdict for a complete draft.
type PolicyDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
