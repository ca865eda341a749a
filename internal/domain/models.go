// Package domain defines the persistence model for audio messages. The type
// is mapped with GORM and forms the core data layer of the service.
package domain

import "time"

// AudioMessage is one uploaded audio clip: sender/recipient metadata plus a
// reference (Filename) into the blob store.
//
// Fields:
//   - ID: autoincrement primary key, assigned on insert, never reused.
//   - Sender / Recipient: required, non-empty.
//   - Filename: globally unique; the join key between this table and the
//     blob store. Allocated by the service layer, never client-controlled.
//   - Duration: optional clip length in seconds; nil when the client did not
//     supply one. No audio-length validation is performed.
//   - FileSize: byte length of the stored blob, measured at write time.
//   - CreatedAt: set once at insert, never updated.
//
// Rows are hard-deleted. A soft-delete tombstone would keep its filename in
// the unique index after the blob is gone, blocking reallocation of the name.
type AudioMessage struct {
	ID        int64     `json:"id"         gorm:"primaryKey;autoIncrement"`
	Sender    string    `json:"sender"     gorm:"type:varchar(100);not null;index"`
	Recipient string    `json:"recipient"  gorm:"type:varchar(100);not null;index"`
	Filename  string    `json:"filename"   gorm:"type:varchar(255);not null;uniqueIndex"`
	Duration  *float64  `json:"duration"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for AudioMessage.
func (AudioMessage) TableName() string { return "audio_messages" }
