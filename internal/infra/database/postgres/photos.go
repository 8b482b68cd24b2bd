package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/event-gallery/internal/domain"
)

var photoColumns = []string{
	"id", "session_id", "original_filename", "content_type",
	"key_original", "key_thumbnail", "uploaded_at", "file_size",
}

func scanPhoto(row pgx.Row) (domain.Photo, error) {
	var p domain.Photo
	if err := row.Scan(
		&p.ID, &p.SessionID, &p.OriginalFilename, &p.ContentType,
		&p.OriginalKey, &p.ThumbnailKey, &p.UploadedAt, &p.FileSize,
	); err != nil {
		return domain.Photo{}, err
	}
	p.UploadedAt = p.UploadedAt.UTC()
	return p, nil
}

// CreatePhoto inserts the photo row and bumps the owning session's
// photo_count in the same transaction.
func (r *PGRepo) CreatePhoto(ctx context.Context, p domain.Photo) (domain.Photo, error) {
	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Photo{}, wrap("create photo begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ins := r.qb().Insert(r.table("photos")).
		Columns(photoColumns...).
		Values(p.ID, p.SessionID, p.OriginalFilename, p.ContentType,
			p.OriginalKey, p.ThumbnailKey, p.UploadedAt, p.FileSize).
		Suffix("RETURNING " + strings.Join(photoColumns, ", "))
	sqlStr, args, _ := ins.ToSql()
	r.logSQL("CreatePhoto", sqlStr, args)

	out, err := scanPhoto(tx.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("CreatePhoto insert error after %s: %v", time.Since(start), err)
		return domain.Photo{}, wrap("create photo", err)
	}

	upd := r.qb().Update(r.table("sessions")).
		Set("photo_count", sq.Expr("photo_count + 1")).
		Where(sq.Eq{"id": p.SessionID})
	sqlStr, args, _ = upd.ToSql()
	r.logSQL("CreatePhoto", sqlStr, args)

	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return domain.Photo{}, wrap("create photo count", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Photo{}, wrap("create photo count", pgx.ErrNoRows)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Photo{}, wrap("create photo commit", err)
	}
	r.logger.Printf("CreatePhoto ok in %s id=%s session=%s", time.Since(start), out.ID, out.SessionID)
	return out, nil
}

func (r *PGRepo) PhotoByID(ctx context.Context, id domain.PhotoID) (domain.Photo, error) {
	q := r.qb().Select(photoColumns...).From(r.table("photos")).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("PhotoByID", sqlStr, args)

	p, err := scanPhoto(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		return domain.Photo{}, wrap("photo by id", err)
	}
	return p, nil
}

func (r *PGRepo) ListPhotos(ctx context.Context, sessionID domain.SessionID, offset, limit int) ([]domain.Photo, error) {
	q := r.qb().Select(photoColumns...).From(r.table("photos")).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("uploaded_at ASC", "id ASC").
		Offset(uint64(offset)).Limit(uint64(limit))
	return r.queryPhotos(ctx, "ListPhotos", q)
}

func (r *PGRepo) PhotosBySession(ctx context.Context, sessionID domain.SessionID) ([]domain.Photo, error) {
	q := r.qb().Select(photoColumns...).From(r.table("photos")).
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("uploaded_at ASC", "id ASC")
	return r.queryPhotos(ctx, "PhotosBySession", q)
}

func (r *PGRepo) queryPhotos(ctx context.Context, op string, q sq.SelectBuilder) ([]domain.Photo, error) {
	sqlStr, args, _ := q.ToSql()
	r.logSQL(op, sqlStr, args)

	start := time.Now()
	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		r.logger.Printf("%s query error after %s: %v", op, time.Since(start), err)
		return nil, wrap(op, err)
	}
	defer rows.Close()

	out := make([]domain.Photo, 0)
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, wrap(op+" scan", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op+" rows", err)
	}
	r.logger.Printf("%s ok in %s rows=%d", op, time.Since(start), len(out))
	return out, nil
}

func (r *PGRepo) CountPhotos(ctx context.Context, sessionID domain.SessionID) (int, error) {
	q := r.qb().Select("COUNT(*)").From(r.table("photos")).Where(sq.Eq{"session_id": sessionID})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("CountPhotos", sqlStr, args)

	var n int
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		return 0, wrap("count photos", err)
	}
	return n, nil
}

func (r *PGRepo) SaveFaceDescriptor(ctx context.Context, fd domain.FaceDescriptor) error {
	var data []byte
	if fd.Descriptor != nil {
		b, err := json.Marshal(fd.Descriptor)
		if err != nil {
			return fmt.Errorf("encode descriptor: %w", err)
		}
		data = b
	}
	q := r.qb().Insert(r.table("face_descriptors")).
		Columns("id", "photo_id", "descriptor_data", "quality_score", "is_primary").
		Values(fd.ID, fd.PhotoID, data, fd.QualityScore, fd.IsPrimary)
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SaveFaceDescriptor", sqlStr, args)

	if _, err := r.pool.Exec(ctx, sqlStr, args...); err != nil {
		return wrap("save face descriptor", err)
	}
	return nil
}

func (r *PGRepo) FaceDescriptors(ctx context.Context, photoID domain.PhotoID) ([]domain.FaceDescriptor, error) {
	q := r.qb().Select("id", "photo_id", "descriptor_data", "quality_score", "is_primary").
		From(r.table("face_descriptors")).Where(sq.Eq{"photo_id": photoID}).OrderBy("id ASC")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("FaceDescriptors", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrap("face descriptors", err)
	}
	defer rows.Close()

	var out []domain.FaceDescriptor
	for rows.Next() {
		var (
			fd   domain.FaceDescriptor
			data []byte
		)
		if err := rows.Scan(&fd.ID, &fd.PhotoID, &data, &fd.QualityScore, &fd.IsPrimary); err != nil {
			return nil, wrap("face descriptors scan", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &fd.Descriptor); err != nil {
				return nil, fmt.Errorf("decode descriptor: %w", err)
			}
		}
		out = append(out, fd)
	}
	return out, wrap("face descriptors rows", rows.Err())
}
