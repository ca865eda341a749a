// Package services defines the business logic for audio messages. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing messages or HTTP status codes is performed at the
// handler layer.
package services

import "errors"

var (
	// ErrMessageNotFound indicates that no audio message exists with the
	// requested id.
	ErrMessageNotFound = errors.New("message not found")

	// ErrMediaNotFound indicates that no blob exists under the requested
	// filename.
	ErrMediaNotFound = errors.New("media not found")

	// ErrMissingSender is returned when a create request omits the sender.
	ErrMissingSender = errors.New("sender is required")

	// ErrMissingRecipient is returned when a create request omits the
	// recipient.
	ErrMissingRecipient = errors.New("recipient is required")

	// ErrMissingFile is returned when a create request carries no audio
	// file, or the file has an empty name.
	ErrMissingFile = errors.New("audio file is required")

	// ErrUnsupportedFormat is returned when the uploaded file's extension
	// is not in the allowed audio set.
	ErrUnsupportedFormat = errors.New("file type not allowed")

	// ErrInvalidDuration is returned when an update supplies a duration
	// that does not parse as a floating-point number.
	ErrInvalidDuration = errors.New("duration must be a valid number")

	// ErrNameExhausted is returned when unique-filename allocation exceeds
	// its attempt bound. This is a hard stop, never retried.
	ErrNameExhausted = errors.New("cannot allocate unique filename")
)
