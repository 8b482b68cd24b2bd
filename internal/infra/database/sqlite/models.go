package sqlite

import (
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// Times are stored as unix microseconds so that ordering is numeric.

type sessionRow struct {
	ID             string  `gorm:"primaryKey;type:text"`
	Name           string  `gorm:"not null"`
	Mode           string  `gorm:"not null"`
	WelcomeMessage *string
	ThemePrimary   *string
	ThemeSecondary *string
	CreatedAt      int64 `gorm:"not null;autoCreateTime:false"`
	ExpiresAt      int64 `gorm:"not null;index"`
	PhotoCount     int   `gorm:"not null"`
}

func (sessionRow) TableName() string { return "sessions" }

type photoRow struct {
	ID               string `gorm:"primaryKey;type:text"`
	SessionID        string `gorm:"not null;index:idx_photos_session_order,priority:1"`
	OriginalFilename string `gorm:"not null"`
	ContentType      string `gorm:"not null"`
	KeyOriginal      string `gorm:"not null;uniqueIndex"`
	KeyThumbnail     string `gorm:"not null;uniqueIndex"`
	UploadedAt       int64  `gorm:"not null;index:idx_photos_session_order,priority:2"`
	FileSize         int64  `gorm:"not null"`
}

func (photoRow) TableName() string { return "photos" }

type faceRow struct {
	ID           string    `gorm:"primaryKey;type:text"`
	PhotoID      string    `gorm:"not null;index"`
	Descriptor   []float64 `gorm:"column:descriptor_data;serializer:json"`
	QualityScore *float64
	IsPrimary    bool `gorm:"not null"`
}

func (faceRow) TableName() string { return "face_descriptors" }

func micros(t time.Time) int64 { return t.UTC().UnixMicro() }

func fromMicros(us int64) time.Time { return time.UnixMicro(us).UTC() }

func toSessionRow(s domain.Session) sessionRow {
	row := sessionRow{
		ID:             s.ID.String(),
		Name:           s.Name,
		Mode:           string(s.Mode),
		WelcomeMessage: s.WelcomeMessage,
		CreatedAt:      micros(s.CreatedAt),
		ExpiresAt:      micros(s.ExpiresAt),
		PhotoCount:     s.PhotoCount,
	}
	if s.Theme != nil {
		p, sec := s.Theme.Primary, s.Theme.Secondary
		row.ThemePrimary, row.ThemeSecondary = &p, &sec
	}
	return row
}

func (row sessionRow) domain() (domain.Session, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Session{}, err
	}
	s := domain.Session{
		ID:             id,
		Name:           row.Name,
		Mode:           domain.Mode(row.Mode),
		WelcomeMessage: row.WelcomeMessage,
		CreatedAt:      fromMicros(row.CreatedAt),
		ExpiresAt:      fromMicros(row.ExpiresAt),
		PhotoCount:     row.PhotoCount,
	}
	if row.ThemePrimary != nil || row.ThemeSecondary != nil {
		s.Theme = &domain.ThemeColors{}
		if row.ThemePrimary != nil {
			s.Theme.Primary = *row.ThemePrimary
		}
		if row.ThemeSecondary != nil {
			s.Theme.Secondary = *row.ThemeSecondary
		}
	}
	return s, nil
}

func toPhotoRow(p domain.Photo) photoRow {
	return photoRow{
		ID:               p.ID.String(),
		SessionID:        p.SessionID.String(),
		OriginalFilename: p.OriginalFilename,
		ContentType:      p.ContentType,
		KeyOriginal:      p.OriginalKey,
		KeyThumbnail:     p.ThumbnailKey,
		UploadedAt:       micros(p.UploadedAt),
		FileSize:         p.FileSize,
	}
}

func (row photoRow) domain() (domain.Photo, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return domain.Photo{}, err
	}
	sid, err := uuid.Parse(row.SessionID)
	if err != nil {
		return domain.Photo{}, err
	}
	return domain.Photo{
		ID:               id,
		SessionID:        sid,
		OriginalFilename: row.OriginalFilename,
		ContentType:      row.ContentType,
		OriginalKey:      row.KeyOriginal,
		ThumbnailKey:     row.KeyThumbnail,
		UploadedAt:       fromMicros(row.UploadedAt),
		FileSize:         row.FileSize,
	}, nil
}

func parseID(s string) (uuid.UUID, error) { return uuid.Parse(s) }
