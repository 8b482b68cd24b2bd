package domain

import (
	"path"
	"strings"
)

// Role of a stored object within a photo.
type Role string

const (
	RoleOriginal  Role = "original"
	RoleThumbnail Role = "thumbnail"
)

const DefaultExtension = "jpg"

func (r Role) dir() string {
	if r == RoleThumbnail {
		return "thumbnails"
	}
	return "originals"
}

// ObjectKey builds sessions/{session}/{originals|thumbnails}/{photo}.{ext}.
func ObjectKey(sessionID SessionID, photoID PhotoID, ext string, role Role) string {
	if ext == "" {
		ext = DefaultExtension
	}
	return SessionPrefix(sessionID) + role.dir() + "/" + photoID.String() + "." + ext
}

// SessionPrefix is shared by every object that belongs to the session.
func SessionPrefix(sessionID SessionID) string {
	return "sessions/" + sessionID.String() + "/"
}

// ExtensionOf returns the lower-cased filename suffix, DefaultExtension if
// there is none or it is not plain alphanumeric.
func ExtensionOf(filename string) string {
	ext := strings.TrimPrefix(path.Ext(strings.ReplaceAll(filename, "\\", "/")), ".")
	if ext == "" || len(ext) > 10 {
		return DefaultExtension
	}
	for _, r := range ext {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return DefaultExtension
		}
	}
	return strings.ToLower(ext)
}

// PhotoKeys returns both keys of a freshly uploaded photo.
func PhotoKeys(sessionID SessionID, photoID PhotoID, filename string) (original, thumbnail string) {
	return ObjectKey(sessionID, photoID, ExtensionOf(filename), RoleOriginal),
		ObjectKey(sessionID, photoID, DefaultExtension, RoleThumbnail)
}
