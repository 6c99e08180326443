package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// EntryLabel is the relational mirror of one audit record: the tags a batch
// job assigned to a corpus position and how they were obtained.
type EntryLabel struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	JobID     string      `gorm:"type:text;not null;index:idx_entry_labels_job_pos,unique" json:"job_id"`
	Position  int         `gorm:"not null;index:idx_entry_labels_job_pos,unique" json:"position"`
	Text      string      `gorm:"type:text;index:idx_entry_labels_text" json:"text"`
	Tones     StringArray `gorm:"type:text" json:"tones"`
	Blocked   bool        `json:"blocked"`
	Reason    string      `gorm:"type:text" json:"reason,omitempty"`
	Source    string      `gorm:"type:text" json:"source"`
	LabeledAt time.Time   `json:"labeled_at"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// TableName returns the database table name for EntryLabel.
func (EntryLabel) TableName() string {
	return "entry_labels"
}
