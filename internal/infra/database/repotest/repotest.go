// Package repotest holds the behaviour every domain.Repo implementation must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
)

// Run exercises repo against a clean schema.
func Run(t *testing.T, repo domain.Repo) {
	t.Helper()
	ctx := context.Background()

	t.Run("session round trip", func(t *testing.T) {
		welcome := "hello"
		in := newSession("Summer Party")
		in.WelcomeMessage = &welcome
		in.Theme = &domain.ThemeColors{Primary: "#111111", Secondary: "#eeeeee"}

		created, err := repo.CreateSession(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 0, created.PhotoCount)

		got, err := repo.SessionByID(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, in.Name, got.Name)
		assert.Equal(t, domain.ModeBrowse, got.Mode)
		require.NotNil(t, got.WelcomeMessage)
		assert.Equal(t, welcome, *got.WelcomeMessage)
		assert.Equal(t, in.Theme, got.Theme)
		assert.True(t, in.ExpiresAt.Equal(got.ExpiresAt))
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := repo.SessionByID(ctx, uuid.New())
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.ErrorIs(t, repo.DeleteSession(ctx, uuid.New()), domain.ErrNotFound)
	})

	t.Run("update patch", func(t *testing.T) {
		s := mustSession(t, repo, "Before")
		msg := "welcome"
		got, err := repo.UpdateSession(ctx, s.ID, domain.SessionPatch{
			Name:           domain.Some("After"),
			WelcomeMessage: domain.Some(&msg),
		})
		require.NoError(t, err)
		assert.Equal(t, "After", got.Name)
		assert.Equal(t, domain.ModeBrowse, got.Mode)
		require.NotNil(t, got.WelcomeMessage)

		got, err = repo.UpdateSession(ctx, s.ID, domain.SessionPatch{
			WelcomeMessage: domain.Some[*string](nil),
			Mode:           domain.Some(domain.ModePrivacy),
		})
		require.NoError(t, err)
		assert.Nil(t, got.WelcomeMessage)
		assert.Equal(t, domain.ModePrivacy, got.Mode)
		assert.Equal(t, "After", got.Name)

		_, err = repo.UpdateSession(ctx, uuid.New(), domain.SessionPatch{Name: domain.Some("x")})
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("photo count follows inserts", func(t *testing.T) {
		s := mustSession(t, repo, "Counted")
		base := time.Now().UTC().Truncate(time.Microsecond)
		for i := 0; i < 3; i++ {
			_, err := repo.CreatePhoto(ctx, newPhoto(s.ID, base.Add(time.Duration(i)*time.Microsecond)))
			require.NoError(t, err)
		}
		got, err := repo.SessionByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.PhotoCount)

		n, err := repo.CountPhotos(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		n, err = repo.ReconcilePhotoCount(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("photo for unknown session is rejected", func(t *testing.T) {
		_, err := repo.CreatePhoto(ctx, newPhoto(uuid.New(), time.Now()))
		require.Error(t, err)
	})

	t.Run("list order and paging", func(t *testing.T) {
		s := mustSession(t, repo, "Ordered")
		base := time.Now().UTC().Truncate(time.Microsecond)
		var want []domain.PhotoID
		for i := 0; i < 5; i++ {
			p, err := repo.CreatePhoto(ctx, newPhoto(s.ID, base.Add(time.Duration(i)*time.Millisecond)))
			require.NoError(t, err)
			want = append(want, p.ID)
		}

		page, err := repo.ListPhotos(ctx, s.ID, 2, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, want[2], page[0].ID)
		assert.Equal(t, want[3], page[1].ID)

		all, err := repo.PhotosBySession(ctx, s.ID)
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i, p := range all {
			assert.Equal(t, want[i], p.ID)
		}

		empty, err := repo.ListPhotos(ctx, s.ID, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, empty)

		got, err := repo.PhotoByID(ctx, want[0])
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.SessionID)
		assert.True(t, base.Equal(got.UploadedAt))
	})

	t.Run("face descriptors are inert", func(t *testing.T) {
		s := mustSession(t, repo, "Faces")
		p, err := repo.CreatePhoto(ctx, newPhoto(s.ID, time.Now()))
		require.NoError(t, err)
		q := 0.75
		fd := domain.FaceDescriptor{ID: uuid.New(), PhotoID: p.ID, Descriptor: []float64{0.1, -0.5, 3}, QualityScore: &q, IsPrimary: true}
		require.NoError(t, repo.SaveFaceDescriptor(ctx, fd))

		got, err := repo.FaceDescriptors(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, fd.Descriptor, got[0].Descriptor)
		require.NotNil(t, got[0].QualityScore)
		assert.InDelta(t, q, *got[0].QualityScore, 1e-9)
		assert.True(t, got[0].IsPrimary)
	})

	t.Run("delete removes every row", func(t *testing.T) {
		s := mustSession(t, repo, "Doomed")
		p, err := repo.CreatePhoto(ctx, newPhoto(s.ID, time.Now()))
		require.NoError(t, err)
		require.NoError(t, repo.SaveFaceDescriptor(ctx, domain.FaceDescriptor{ID: uuid.New(), PhotoID: p.ID}))

		require.NoError(t, repo.DeleteSession(ctx, s.ID))

		_, err = repo.SessionByID(ctx, s.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		_, err = repo.PhotoByID(ctx, p.ID)
		require.ErrorIs(t, err, domain.ErrNotFound)
		faces, err := repo.FaceDescriptors(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, faces)
	})

	t.Run("expired sessions", func(t *testing.T) {
		old := newSession("Old")
		old.CreatedAt = time.Now().UTC().Add(-10 * 24 * time.Hour).Truncate(time.Microsecond)
		old.ExpiresAt = old.CreatedAt.Add(7 * 24 * time.Hour)
		_, err := repo.CreateSession(ctx, old)
		require.NoError(t, err)
		fresh := mustSession(t, repo, "Fresh")

		ids, err := repo.ExpiredSessions(ctx, time.Now(), 100)
		require.NoError(t, err)
		assert.Contains(t, ids, old.ID)
		assert.NotContains(t, ids, fresh.ID)
	})
}

func newSession(name string) domain.Session {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return domain.Session{
		ID:        uuid.New(),
		Name:      name,
		Mode:      domain.ModeBrowse,
		CreatedAt: now,
		ExpiresAt: now.Add(7 * 24 * time.Hour),
	}
}

func mustSession(t *testing.T, repo domain.Repo, name string) domain.Session {
	t.Helper()
	s, err := repo.CreateSession(context.Background(), newSession(name))
	require.NoError(t, err)
	return s
}

func newPhoto(sid domain.SessionID, at time.Time) domain.Photo {
	id := uuid.Must(uuid.NewV7())
	orig, thumb := domain.PhotoKeys(sid, id, "img.jpg")
	return domain.Photo{
		ID:               id,
		SessionID:        sid,
		OriginalFilename: "img.jpg",
		ContentType:      "image/jpeg",
		OriginalKey:      orig,
		ThumbnailKey:     thumb,
		UploadedAt:       at.UTC().Truncate(time.Microsecond),
		FileSize:         42,
	}
}
