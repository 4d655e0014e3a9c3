// Package storage keeps uploaded audio blobs and resolves their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned by Get when nothing is stored under the path.
var ErrObjectNotFound = errors.New("object not found")

// ErrObjectExists is returned by Put when the path is already taken.
var ErrObjectExists = errors.New("object already exists")

// AudioPrefix is the folder every uploaded audio message lives under.
const AudioPrefix = "audio-messages"

// Object is a stored blob together with its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectStore is the object storage capability the services depend on.
type ObjectStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
	Get(ctx context.Context, path string) (Object, error)
	PublicURL(path string) string
}

// fallbackExtension is used for unknown or missing MIME types.
const fallbackExtension = "webm"

var mimeExtensions = map[string]string{
	"audio/webm":  "webm",
	"audio/ogg":   "ogg",
	"audio/mp4":   "m4a",
	"audio/x-m4a": "m4a",
	"audio/mpeg":  "mp3",
	"audio/mp3":   "mp3",
	"audio/wav":   "wav",
	"audio/x-wav": "wav",
	"audio/wave":  "wav",
	"audio/aac":   "aac",
}

var extensionTypes = map[string]string{
	"webm": "audio/webm",
	"ogg":  "audio/ogg",
	"m4a":  "audio/mp4",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"aac":  "audio/aac",
}

// ExtensionForMIME maps a recording/upload MIME type to a file extension.
// Parameters such as ";codecs=opus" are ignored.
func ExtensionForMIME(contentType string) string {
	base := strings.TrimSpace(contentType)
	if mt, _, err := mime.ParseMediaType(base); err == nil {
		base = mt
	} else if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	if ext, ok := mimeExtensions[strings.ToLower(strings.TrimSpace(base))]; ok {
		return ext
	}
	return fallbackExtension
}

// ContentTypeForPath guesses the MIME type of a stored audio object from its extension.
func ContentTypeForPath(p string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// ExtensionOf returns the extension of a storage path without the dot.
func ExtensionOf(p string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(p)), ".")
}

// AudioObjectPath builds audio-messages/<epoch-millis>-<recipientId>.<ext>.
func AudioObjectPath(now time.Time, recipientID int64, contentType string) string {
	return fmt.Sprintf("%s/%d-%d.%s", AudioPrefix, now.UnixMilli(), recipientID, ExtensionForMIME(contentType))
}

// CleanPath normalises an object path and rejects anything escaping the store root.
func CleanPath(p string) (string, error) {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "", errors.New("empty object path")
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned != strings.TrimPrefix(p, "/") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}
