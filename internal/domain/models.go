package domain

import (
	"time"

	"github.com/google/uuid"
)

// Base identifiers
type SessionID = uuid.UUID
type PhotoID = uuid.UUID
type FaceID = uuid.UUID

// Gallery visibility mode; enforced by the transport, stored here.
type Mode string

const (
	ModePrivacy Mode = "privacy"
	ModeBrowse  Mode = "browse"
)

func (m Mode) Valid() bool { return m == ModePrivacy || m == ModeBrowse }

type ThemeColors struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Session is a time-bounded gallery created by a host.
type Session struct {
	ID             SessionID    `json:"id"`
	Name           string       `json:"name"`
	Mode           Mode         `json:"mode"`
	WelcomeMessage *string      `json:"welcome_message,omitempty"`
	Theme          *ThemeColors `json:"theme_colors,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	ExpiresAt      time.Time    `json:"expires_at"`
	PhotoCount     int          `json:"photo_count"` // denormalized, kept equal to live photos
}

// Expired reports whether the retention window has lapsed at now.
func (s Session) Expired(now time.Time) bool { return now.After(s.ExpiresAt) }

// Photo is one uploaded image with its two stored objects.
type Photo struct {
	ID               PhotoID   `json:"id"`
	SessionID        SessionID `json:"session_id"`
	OriginalFilename string    `json:"original_filename"`
	ContentType      string    `json:"content_type"`
	OriginalKey      string    `json:"-"`
	ThumbnailKey     string    `json:"-"`
	UploadedAt       time.Time `json:"uploaded_at"`
	FileSize         int64     `json:"file_size"`
}

// FaceDescriptor is reserved for face matching; nothing here reads or computes it.
type FaceDescriptor struct {
	ID           FaceID    `json:"id"`
	PhotoID      PhotoID   `json:"photo_id"`
	Descriptor   []float64 `json:"descriptor,omitempty"`
	QualityScore *float64  `json:"quality_score,omitempty"`
	IsPrimary    bool      `json:"is_primary"`
}

// NewSession carries host input for session creation.
type NewSession struct {
	Name           string
	Mode           Mode
	WelcomeMessage *string
	Theme          *ThemeColors
}

// SessionPatch is a partial settings update: absent fields stay unchanged.
type SessionPatch struct {
	Name           Optional[string]       `json:"name"`
	Mode           Optional[Mode]         `json:"mode"`
	WelcomeMessage Optional[*string]      `json:"welcome_message"`
	Theme          Optional[*ThemeColors] `json:"theme_colors"`
}

func (p SessionPatch) Empty() bool {
	return !p.Name.Set && !p.Mode.Set && !p.WelcomeMessage.Set && !p.Theme.Set
}

// Upload is one file offered for ingestion.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadResult struct {
	SessionID  SessionID `json:"session_id"`
	PhotoCount int       `json:"photo_count"`
	ExpiresAt  time.Time `json:"expires_at"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
}
