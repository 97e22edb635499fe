package domain

// AskRequest is one conversational turn submitted by a client.
type AskRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Query     string `json:"query"`
}

// AskResponse is the structured reply for a turn.
type AskResponse struct {
	Answer          string        `json:"answer"`
	Sources         []Source      `json:"sources"`
	SessionID       string        `json:"session_id"`
	BookingDetected bool          `json:"booking_detected"`
	BookingData     *BookingDraft `json:"booking_data,omitempty"`
	BookingID       string        `json:"booking_id,omitempty"`
}

// ScheduleRequest books an interview directly with complete details.
type ScheduleRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	SessionID string `json:"session_id,omitempty"`
}

// Draft returns the scheduling fields of the request.
func (r ScheduleRequest) Draft() BookingDraft {
	return BookingDraft{Name: r.Name, Email: r.Email, Date: r.Date, Time: r.Time}
}

// ScheduleResponse is the result of a direct booking.
type ScheduleResponse struct {
	Success   bool     `json:"success"`
	BookingID string   `json:"booking_id,omitempty"`
	Message   string   `json:"message"`
	Booking   *Booking `json:"booking,omitempty"`
}

// UploadResponse reports the outcome of a document ingestion.
type UploadResponse struct {
	Message     string `json:"message"`
	FileType    string `json:"file_type"`
	FileName    string `json:"filename"`
	DocumentID  string `json:"document_id,omitempty"`
	TotalChunks int    `json:"total_chunks"`
}
