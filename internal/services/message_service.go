// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of audio messages. It validates inputs, allocates
// collision-free filenames, coordinates the blob store and the metadata
// store, and keeps the two in lockstep: a row exists only for a blob that
// was written, and a deleted row releases its blob.
//
// The blob write and the row write are not covered by one transaction, so
// each mutation defines its compensation: a failed insert removes the blob
// it just wrote, and a row deletion tolerates (and logs) a blob that is
// already gone or cannot be removed.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// message ids and resolved filenames.
package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elanexo/audio-backend/internal/domain"
	"github.com/elanexo/audio-backend/internal/repo"
	"github.com/elanexo/audio-backend/internal/storage"
)

// MessageService coordinates the metadata store and the blob store.
type MessageService struct {
	DB    *gorm.DB
	Blobs storage.Backend
}

// ListFilter restricts List to rows matching the set fields exactly.
// Empty fields apply no constraint.
type ListFilter struct {
	Sender    string
	Recipient string
}

// CreateInput carries a validated-at-the-edge create request. Duration is
// nil when the client supplied none (or an unparseable value; only updates
// reject those).
type CreateInput struct {
	Sender    string
	Recipient string
	Filename  string
	Data      []byte
	Duration  *float64
}

// FileUpload is a replacement file supplied with an update.
type FileUpload struct {
	Name string
	Data []byte
}

// UpdatePatch carries the optional fields of an update request. Nil fields
// are left untouched. Duration is the raw form value; it is parsed here so
// that an invalid value fails the update before anything is persisted.
type UpdatePatch struct {
	Sender    *string
	Recipient *string
	Duration  *string
	File      *FileUpload
}

// List returns all messages matching the filter, in unspecified order.
func (s *MessageService) List(ctx context.Context, f ListFilter) ([]domain.AudioMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("filter.sender", f.Sender),
			attribute.String("filter.recipient", f.Recipient),
		),
	)
	defer span.End()

	return repo.ListMessages(ctx, s.DB, f.Sender, f.Recipient)
}

// Get returns the message with the given id, or ErrMessageNotFound.
func (s *MessageService) Get(ctx context.Context, id int64) (*domain.AudioMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("message.id", id)),
	)
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

// Create validates the request, writes the blob under a collision-free name,
// and inserts the metadata row. If the insert fails, the freshly written
// blob is removed so the name is released.
func (s *MessageService) Create(ctx context.Context, in CreateInput) (*domain.AudioMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("message.sender", in.Sender),
			attribute.String("message.recipient", in.Recipient),
		),
	)
	defer span.End()

	if in.Sender == "" {
		return nil, ErrMissingSender
	}
	if in.Recipient == "" {
		return nil, ErrMissingRecipient
	}
	if in.Filename == "" {
		return nil, ErrMissingFile
	}
	if !allowedFile(in.Filename) {
		return nil, ErrUnsupportedFormat
	}

	name, size, err := s.storeBlob(ctx, in.Filename, in.Data)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("message.filename", name))

	m, err := repo.CreateMessage(s.DB.WithContext(ctx), in.Sender, in.Recipient, name, in.Duration, size)
	if err != nil {
		s.removeBlob(ctx, name, "create rollback")
		return nil, err
	}
	return m, nil
}

// Update applies a partial update. A replacement file with an allowed
// extension swaps the blob (old one deleted, new name allocated); one with
// a disallowed extension is silently ignored and only metadata fields
// apply. An unparseable duration fails the whole update before any blob or
// row is touched.
func (s *MessageService) Update(ctx context.Context, id int64, p UpdatePatch) (*domain.AudioMessage, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("message.id", id)),
	)
	defer span.End()

	// Parse before any side effect so a bad duration cannot leave a
	// half-replaced blob behind.
	var duration *float64
	if p.Duration != nil {
		v, err := strconv.ParseFloat(*p.Duration, 64)
		if err != nil {
			return nil, ErrInvalidDuration
		}
		duration = &v
	}

	m, err := repo.GetMessage(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}

	if p.File != nil && p.File.Name != "" && allowedFile(p.File.Name) {
		if err := s.Blobs.Delete(ctx, m.Filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		name, size, err := s.storeBlob(ctx, p.File.Name, p.File.Data)
		if err != nil {
			return nil, err
		}
		m.Filename = name
		m.FileSize = size
		span.SetAttributes(attribute.String("message.filename", name))
	}

	if p.Sender != nil {
		m.Sender = *p.Sender
	}
	if p.Recipient != nil {
		m.Recipient = *p.Recipient
	}
	if duration != nil {
		m.Duration = duration
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.UpdateMessage(tx, m)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes the row first, then the blob. A blob that is already gone
// is fine; one that cannot be removed is logged as an orphan, which a later
// reconciliation can sweep. The row never outlives its deletion.
func (s *MessageService) Delete(ctx context.Context, id int64) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("message.id", id)),
	)
	defer span.End()

	m, err := repo.GetMessage(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return repo.DeleteMessage(tx, id)
	})
	if err != nil {
		return err
	}

	s.removeBlob(ctx, m.Filename, "delete")
	return nil
}

// Media streams the raw blob stored under filename. Traversal-unsafe names
// and missing blobs both report ErrMediaNotFound.
func (s *MessageService) Media(ctx context.Context, filename string) (io.ReadCloser, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Media",
		trace.WithAttributes(attribute.String("message.filename", filename)),
	)
	defer span.End()

	rc, size, err := s.Blobs.Download(ctx, filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrUnsafeKey) {
			return nil, 0, ErrMediaNotFound
		}
		return nil, 0, err
	}
	return rc, size, nil
}

// storeBlob sanitizes the desired name and claims the first free candidate
// with an exclusive write. The attempt bound turns pathological collision
// chains into ErrNameExhausted instead of an unbounded scan.
func (s *MessageService) storeBlob(ctx context.Context, desired string, data []byte) (string, int64, error) {
	name := sanitizeFilename(desired)
	if name == "" {
		return "", 0, ErrMissingFile
	}
	for n := 0; n <= maxNameAttempts; n++ {
		cand := candidateName(name, n)
		size, err := s.Blobs.WriteExclusive(ctx, cand, bytes.NewReader(data))
		if errors.Is(err, storage.ErrExists) {
			continue
		}
		if err != nil {
			return "", 0, err
		}
		return cand, size, nil
	}
	return "", 0, ErrNameExhausted
}

// removeBlob deletes best-effort; anything but a clean removal or a blob
// that was already gone is logged with the key for later reconciliation.
func (s *MessageService) removeBlob(ctx context.Context, filename, op string) {
	if err := s.Blobs.Delete(ctx, filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Warn().
			Str("filename", filename).
			Str("op", op).
			Err(err).
			Msg("orphaned blob left in store")
	}
}
