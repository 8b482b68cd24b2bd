// Package sqlite is the single-file metadata store used for local runs and tests.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/EgorLis/event-gallery/internal/domain"
)

type Repo struct {
	logger *log.Logger
	db     *gorm.DB
}

var _ domain.Repo = (*Repo)(nil)

// Open creates the database file if needed and migrates the schema.
func Open(logger *log.Logger, path string) (*Repo, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer at a time keeps sqlite out of SQLITE_BUSY under parallel uploads
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	logger.Println("applying sqlite migrations...")
	if err := db.AutoMigrate(&sessionRow{}, &photoRow{}, &faceRow{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	logger.Printf("sqlite ready at %s", path)
	return &Repo{logger: logger, db: db}, nil
}

func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repo) Close() {
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	r.logger.Println("sqlite closed")
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrPersistence, err)
}

// ---- sessions ----

func (r *Repo) CreateSession(ctx context.Context, s domain.Session) (domain.Session, error) {
	s.PhotoCount = 0
	row := toSessionRow(s)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Session{}, wrap("create session", err)
	}
	r.logger.Printf("CreateSession ok id=%s name=%q", row.ID, row.Name)
	return row.domain()
}

func (r *Repo) SessionByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	var row sessionRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error; err != nil {
		return domain.Session{}, wrap("session by id", err)
	}
	return row.domain()
}

func (r *Repo) UpdateSession(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	set := map[string]any{}
	if patch.Name.Set {
		set["name"] = patch.Name.Value
	}
	if patch.Mode.Set {
		set["mode"] = string(patch.Mode.Value)
	}
	if patch.WelcomeMessage.Set {
		set["welcome_message"] = patch.WelcomeMessage.Value
	}
	if patch.Theme.Set {
		if t := patch.Theme.Value; t != nil {
			set["theme_primary"], set["theme_secondary"] = t.Primary, t.Secondary
		} else {
			set["theme_primary"], set["theme_secondary"] = nil, nil
		}
	}
	if len(set) > 0 {
		res := r.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", id.String()).Updates(set)
		if res.Error != nil {
			return domain.Session{}, wrap("update session", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.Session{}, wrap("update session", gorm.ErrRecordNotFound)
		}
		r.logger.Printf("UpdateSession ok id=%s fields=%d", id, len(set))
	}
	return r.SessionByID(ctx, id)
}

func (r *Repo) ReconcilePhotoCount(ctx context.Context, id domain.SessionID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&photoRow{}).Where("session_id = ?", id.String()).Count(&n).Error; err != nil {
			return err
		}
		res := tx.Model(&sessionRow{}).Where("id = ?", id.String()).Update("photo_count", n)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return 0, wrap("reconcile photo count", err)
	}
	return int(n), nil
}

func (r *Repo) DeleteSession(ctx context.Context, id domain.SessionID) error {
	start := time.Now()
	sid := id.String()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photos := tx.Model(&photoRow{}).Select("id").Where("session_id = ?", sid)
		if err := tx.Where("photo_id IN (?)", photos).Delete(&faceRow{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", sid).Delete(&photoRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", sid).Delete(&sessionRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return wrap("delete session", err)
	}
	r.logger.Printf("DeleteSession ok in %s id=%s", time.Since(start), id)
	return nil
}

func (r *Repo) ExpiredSessions(ctx context.Context, before time.Time, limit int) ([]domain.SessionID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&sessionRow{}).
		Where("expires_at < ?", micros(before)).
		Order("expires_at ASC").Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, wrap("expired sessions", err)
	}
	out := make([]domain.SessionID, 0, len(ids))
	for _, s := range ids {
		id, err := parseID(s)
		if err != nil {
			return nil, wrap("expired sessions", err)
		}
		out = append(out, id)
	}
	return out, nil
}

// ---- photos ----

func (r *Repo) CreatePhoto(ctx context.Context, p domain.Photo) (domain.Photo, error) {
	row := toPhotoRow(p)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		res := tx.Model(&sessionRow{}).Where("id = ?", row.SessionID).
			Update("photo_count", gorm.Expr("photo_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Photo{}, wrap("create photo", err)
	}
	return row.domain()
}

func (r *Repo) PhotoByID(ctx context.Context, id domain.PhotoID) (domain.Photo, error) {
	var row photoRow
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&row).Error; err != nil {
		return domain.Photo{}, wrap("photo by id", err)
	}
	return row.domain()
}

func (r *Repo) ListPhotos(ctx context.Context, sessionID domain.SessionID, offset, limit int) ([]domain.Photo, error) {
	q := r.photoOrder(ctx, sessionID).Offset(offset).Limit(limit)
	return r.findPhotos(q, "list photos")
}

func (r *Repo) PhotosBySession(ctx context.Context, sessionID domain.SessionID) ([]domain.Photo, error) {
	return r.findPhotos(r.photoOrder(ctx, sessionID), "photos by session")
}

func (r *Repo) photoOrder(ctx context.Context, sessionID domain.SessionID) *gorm.DB {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID.String()).
		Order(clause.OrderBy{Columns: []clause.OrderByColumn{
			{Column: clause.Column{Name: "uploaded_at"}},
			{Column: clause.Column{Name: "id"}},
		}})
}

func (r *Repo) findPhotos(q *gorm.DB, op string) ([]domain.Photo, error) {
	var rows []photoRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, wrap(op, err)
	}
	out := make([]domain.Photo, 0, len(rows))
	for _, row := range rows {
		p, err := row.domain()
		if err != nil {
			return nil, wrap(op, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repo) CountPhotos(ctx context.Context, sessionID domain.SessionID) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&photoRow{}).Where("session_id = ?", sessionID.String()).Count(&n).Error
	if err != nil {
		return 0, wrap("count photos", err)
	}
	return int(n), nil
}

// ---- face descriptors ----

func (r *Repo) SaveFaceDescriptor(ctx context.Context, fd domain.FaceDescriptor) error {
	row := faceRow{
		ID:           fd.ID.String(),
		PhotoID:      fd.PhotoID.String(),
		Descriptor:   fd.Descriptor,
		QualityScore: fd.QualityScore,
		IsPrimary:    fd.IsPrimary,
	}
	return wrap("save face descriptor", r.db.WithContext(ctx).Create(&row).Error)
}

func (r *Repo) FaceDescriptors(ctx context.Context, photoID domain.PhotoID) ([]domain.FaceDescriptor, error) {
	var rows []faceRow
	if err := r.db.WithContext(ctx).Where("photo_id = ?", photoID.String()).Order("id").Find(&rows).Error; err != nil {
		return nil, wrap("face descriptors", err)
	}
	out := make([]domain.FaceDescriptor, 0, len(rows))
	for _, row := range rows {
		id, err := parseID(row.ID)
		if err != nil {
			return nil, wrap("face descriptors", err)
		}
		out = append(out, domain.FaceDescriptor{
			ID:           id,
			PhotoID:      photoID,
			Descriptor:   row.Descriptor,
			QualityScore: row.QualityScore,
			IsPrimary:    row.IsPrimary,
		})
	}
	return out, nil
}
