// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// AudioMessage model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/elanexo/audio-backend/internal/domain"
)

// CreateMessage inserts a new audio message row. The caller supplies the
// already-allocated filename and the measured blob size.
func CreateMessage(db *gorm.DB, sender, recipient, filename string, duration *float64, fileSize int64) (*domain.AudioMessage, error) {
	m := &domain.AudioMessage{
		Sender:    sender,
		Recipient: recipient,
		Filename:  filename,
		Duration:  duration,
		FileSize:  fileSize,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.Create(m).Error
}

// GetMessage fetches a message by ID. Returns gorm.ErrRecordNotFound when
// no row matches.
func GetMessage(ctx context.Context, db *gorm.DB, id int64) (*domain.AudioMessage, error) {
	var m domain.AudioMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns messages matching the optional equality filters.
// Empty filter strings apply no constraint; both set means logical AND.
// Row order is store-native and deliberately unspecified.
func ListMessages(ctx context.Context, db *gorm.DB, sender, recipient string) ([]domain.AudioMessage, error) {
	out := []domain.AudioMessage{}
	q := db.WithContext(ctx)
	if sender != "" {
		q = q.Where("sender = ?", sender)
	}
	if recipient != "" {
		q = q.Where("recipient = ?", recipient)
	}
	err := q.Find(&out).Error
	return out, err
}

// UpdateMessage persists the mutated fields of m in place.
func UpdateMessage(db *gorm.DB, m *domain.AudioMessage) error {
	return db.Model(m).Updates(map[string]any{
		"sender":    m.Sender,
		"recipient": m.Recipient,
		"filename":  m.Filename,
		"duration":  m.Duration,
		"file_size": m.FileSize,
	}).Error
}

// DeleteMessage removes a row by ID. The delete is hard: the filename must
// leave the unique index together with the blob.
func DeleteMessage(db *gorm.DB, id int64) error {
	return db.Delete(&domain.AudioMessage{}, id).Error
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw("SELECT COUNT(*) FROM audio_messages").Scan(&total).Error
	return total, err
}
