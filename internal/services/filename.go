// Package services – filename resolution.
//
// Uploaded filenames are client-controlled and must never address anything
// outside the blob store. sanitizeFilename scrubs a proposed name down to a
// safe flat-namespace key; candidateName enumerates the collision-avoidance
// sequence (name, base_1.ext, base_2.ext, …) that the message service walks
// with exclusive writes until a free name is claimed.
package services

import (
	"fmt"
	"strings"
)

// maxNameAttempts bounds the unique-name search. Exhausting it surfaces as
// ErrNameExhausted and is never retried.
const maxNameAttempts = 1000

// allowedAudioExt is the set of accepted audio file extensions, matched
// case-insensitively against the suffix after the last dot.
var allowedAudioExt = map[string]struct{}{
	"mp3": {},
	"wav": {},
	"ogg": {},
	"m4a": {},
	"aac": {},
	"3gp": {},
}

// allowedFile reports whether name carries an extension from the allowed
// audio set. Extension-less names are rejected.
func allowedFile(name string) bool {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}
	_, ok := allowedAudioExt[strings.ToLower(name[i+1:])]
	return ok
}

// sanitizeFilename secures a client-proposed filename: path separators
// become word breaks, runs of whitespace collapse to a single underscore,
// anything outside [A-Za-z0-9_.-] is dropped, and leading/trailing dots and
// underscores are trimmed. The result may be empty; callers must reject
// empty names before allocation.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", " ")
	name = strings.ReplaceAll(name, "\\", " ")
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

// splitExt splits name into (base, extension-with-dot). Names without a dot,
// or with only a leading dot, have an empty extension.
func splitExt(name string) (base, ext string) {
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i], name[i:]
	}
	return name, ""
}

// candidateName returns the n-th collision-avoidance candidate for a
// sanitized name: the name itself for n == 0, base_n.ext afterwards.
// Extension-less names yield base_n.
func candidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	base, ext := splitExt(name)
	return fmt.Sprintf("%s_%d%s", base, n, ext)
}
