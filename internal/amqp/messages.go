package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/prathap-k00/expense-tracker/internal/core"
)

var ErrInvalidMessage = errors.New("invalid report export message")

// ReportExportMessage asks the worker to export one user's month to the spreadsheet.
// It carries identifiers only; the worker reads the data fresh from the database.
type ReportExportMessage struct {
	UserID      int64     `json:"user_id"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewReportExportMessage(userID int64, p core.Period) *ReportExportMessage {
	return &ReportExportMessage{
		UserID:      userID,
		Year:        p.Year,
		Month:       p.Month,
		RequestedAt: time.Now().UTC(),
	}
}

// Period returns the month the export covers.
func (m *ReportExportMessage) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}

func (m *ReportExportMessage) Validate() error {
	if m.UserID <= 0 {
		return ErrInvalidMessage
	}
	if err := m.Period().Validate(); err != nil {
		return ErrInvalidMessage
	}
	return nil
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportExportMessageFromJSON decodes and validates a delivery body.
func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
