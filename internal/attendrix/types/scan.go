package types

import (
	"time"

	"github.com/attendrix/server/internal/attendrix/store"
)

// ScanRequest is what a capture device posts after extracting a face
// embedding.  The embedding is the raw probe vector; extraction happens on
// the device.
type ScanRequest struct {
	DeviceID      string    `json:"device_id,omitempty"`
	Embedding     []float64 `json:"embedding"`
	CapturedAt    string    `json:"captured_at,omitempty"` // optional device timestamp
	Location      *string   `json:"location,omitempty"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	FaceImagePath string    `json:"face_image_path,omitempty"`
}

// ScanResponse reports the scan outcome.  Outcome is always set; UserID,
// Confidence and Record only when a record was appended.
type ScanResponse struct {
	OK         bool                     `json:"ok"`
	Outcome    string                   `json:"outcome"`
	UserID     string                   `json:"user_id,omitempty"`
	Confidence *float64                 `json:"confidence_score,omitempty"`
	Record     *AttendanceRecordPayload `json:"record,omitempty"`
	ServerTime string                   `json:"server_time"`
}

// AttendanceRecordPayload is the wire form of a ledger record.  The field
// names are a compatibility contract with existing stored data.
type AttendanceRecordPayload struct {
	ID              string   `json:"id"`
	UserID          string   `json:"user_id"`
	Type            string   `json:"type,omitempty"`
	Status          string   `json:"status"`
	Timestamp       string   `json:"timestamp"`
	Location        *string  `json:"location,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	FaceImagePath   *string  `json:"face_image_path,omitempty"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

// FromRecord converts a stored record to its wire form.
func FromRecord(rec store.AttendanceRecord) AttendanceRecordPayload {
	return AttendanceRecordPayload{
		ID:              rec.ID,
		UserID:          rec.UserID,
		Type:            string(rec.Type),
		Status:          string(rec.Status),
		Timestamp:       rec.Timestamp.UTC().Format(time.RFC3339),
		Location:        rec.Location,
		Latitude:        rec.Latitude,
		Longitude:       rec.Longitude,
		FaceImagePath:   rec.FaceImagePath,
		ConfidenceScore: rec.ConfidenceScore,
		Notes:           rec.Notes,
	}
}

// EnrollRequest registers a face embedding for a user.  Replace deactivates
// the user's previous embeddings first (re-enrollment).
type EnrollRequest struct {
	UserID    string    `json:"user_id"`
	Embedding []float64 `json:"embedding"`
	Replace   bool      `json:"replace,omitempty"`
}

// EnrollResponse reports the enrollment result.
type EnrollResponse struct {
	OK          bool   `json:"ok"`
	UserID      string `json:"user_id"`
	Deactivated int64  `json:"deactivated,omitempty"`
	Dimension   int    `json:"dimension,omitempty"`
	ServerTime  string `json:"server_time"`
}
