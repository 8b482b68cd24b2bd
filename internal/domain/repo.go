package domain

import (
	"context"
	"time"
)

// SessionsRepo persists session rows. Lookups fail with ErrNotFound.
type SessionsRepo interface {
	CreateSession(ctx context.Context, s Session) (Session, error)
	SessionByID(ctx context.Context, id SessionID) (Session, error)
	UpdateSession(ctx context.Context, id SessionID, patch SessionPatch) (Session, error)
	// ReconcilePhotoCount rewrites photo_count from the live photo rows.
	ReconcilePhotoCount(ctx context.Context, id SessionID) (int, error)
	// DeleteSession removes face descriptors, photos and the session row together.
	DeleteSession(ctx context.Context, id SessionID) error
	ExpiredSessions(ctx context.Context, before time.Time, limit int) ([]SessionID, error)
}

// PhotosRepo persists photo rows, ordered by uploaded_at then id.
type PhotosRepo interface {
	// CreatePhoto inserts the row and increments the session photo_count atomically.
	CreatePhoto(ctx context.Context, p Photo) (Photo, error)
	PhotoByID(ctx context.Context, id PhotoID) (Photo, error)
	ListPhotos(ctx context.Context, sessionID SessionID, offset, limit int) ([]Photo, error)
	CountPhotos(ctx context.Context, sessionID SessionID) (int, error)
	PhotosBySession(ctx context.Context, sessionID SessionID) ([]Photo, error)

	SaveFaceDescriptor(ctx context.Context, fd FaceDescriptor) error
	FaceDescriptors(ctx context.Context, photoID PhotoID) ([]FaceDescriptor, error)
}

type Repo interface {
	SessionsRepo
	PhotosRepo
	Ping(ctx context.Context) error
	Close()
}
