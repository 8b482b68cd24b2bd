package postgres

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/EgorLis/event-gallery/internal/domain"
)

var sessionColumns = []string{
	"id", "name", "mode", "welcome_message", "theme_primary", "theme_secondary",
	"created_at", "expires_at", "photo_count",
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		s                  domain.Session
		primary, secondary *string
	)
	if err := row.Scan(
		&s.ID, &s.Name, &s.Mode, &s.WelcomeMessage, &primary, &secondary,
		&s.CreatedAt, &s.ExpiresAt, &s.PhotoCount,
	); err != nil {
		return domain.Session{}, err
	}
	if primary != nil || secondary != nil {
		s.Theme = &domain.ThemeColors{Primary: deref(primary), Secondary: deref(secondary)}
	}
	s.CreatedAt, s.ExpiresAt = s.CreatedAt.UTC(), s.ExpiresAt.UTC()
	return s, nil
}

func themeColumns(t *domain.ThemeColors) (primary, secondary *string) {
	if t == nil {
		return nil, nil
	}
	return &t.Primary, &t.Secondary
}

func (r *PGRepo) CreateSession(ctx context.Context, s domain.Session) (domain.Session, error) {
	primary, secondary := themeColumns(s.Theme)
	q := r.qb().Insert(r.table("sessions")).
		Columns(sessionColumns...).
		Values(s.ID, s.Name, s.Mode, s.WelcomeMessage, primary, secondary, s.CreatedAt, s.ExpiresAt, 0).
		Suffix("RETURNING " + strings.Join(sessionColumns, ", "))

	sqlStr, args, _ := q.ToSql()
	r.logSQL("CreateSession", sqlStr, args)

	start := time.Now()
	out, err := scanSession(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("CreateSession scan error after %s: %v", time.Since(start), err)
		return domain.Session{}, wrap("create session", err)
	}
	r.logger.Printf("CreateSession ok in %s id=%s name=%q", time.Since(start), out.ID, out.Name)
	return out, nil
}

func (r *PGRepo) SessionByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	q := r.qb().Select(sessionColumns...).From(r.table("sessions")).Where(sq.Eq{"id": id})
	sqlStr, args, _ := q.ToSql()
	r.logSQL("SessionByID", sqlStr, args)

	start := time.Now()
	s, err := scanSession(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("SessionByID scan error after %s: %v", time.Since(start), err)
		return domain.Session{}, wrap("session by id", err)
	}
	return s, nil
}

func (r *PGRepo) UpdateSession(ctx context.Context, id domain.SessionID, patch domain.SessionPatch) (domain.Session, error) {
	set := map[string]any{}
	if patch.Name.Set {
		set["name"] = patch.Name.Value
	}
	if patch.Mode.Set {
		set["mode"] = patch.Mode.Value
	}
	if patch.WelcomeMessage.Set {
		set["welcome_message"] = patch.WelcomeMessage.Value
	}
	if patch.Theme.Set {
		set["theme_primary"], set["theme_secondary"] = themeColumns(patch.Theme.Value)
	}
	if len(set) == 0 {
		return r.SessionByID(ctx, id)
	}

	q := r.qb().Update(r.table("sessions")).SetMap(set).Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(sessionColumns, ", "))
	sqlStr, args, _ := q.ToSql()
	r.logSQL("UpdateSession", sqlStr, args)

	start := time.Now()
	s, err := scanSession(r.pool.QueryRow(ctx, sqlStr, args...))
	if err != nil {
		r.logger.Printf("UpdateSession error after %s: %v", time.Since(start), err)
		return domain.Session{}, wrap("update session", err)
	}
	r.logger.Printf("UpdateSession ok in %s id=%s fields=%d", time.Since(start), id, len(set))
	return s, nil
}

func (r *PGRepo) ReconcilePhotoCount(ctx context.Context, id domain.SessionID) (int, error) {
	count := sq.Expr("(SELECT COUNT(*) FROM "+r.table("photos")+" WHERE session_id = ?)", id)
	q := r.qb().Update(r.table("sessions")).Set("photo_count", count).
		Where(sq.Eq{"id": id}).Suffix("RETURNING photo_count")
	sqlStr, args, _ := q.ToSql()
	r.logSQL("ReconcilePhotoCount", sqlStr, args)

	var n int
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&n); err != nil {
		r.logger.Printf("ReconcilePhotoCount error: %v", err)
		return 0, wrap("reconcile photo count", err)
	}
	return n, nil
}

// DeleteSession removes children before the parent inside one transaction
// instead of relying on ON DELETE CASCADE.
func (r *PGRepo) DeleteSession(ctx context.Context, id domain.SessionID) error {
	start := time.Now()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return wrap("delete session begin", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	photoIDs := r.qb().Select("id").From(r.table("photos")).Where(sq.Eq{"session_id": id})
	sub, subArgs, _ := photoIDs.ToSql()

	stmts := []sq.Sqlizer{
		r.qb().Delete(r.table("face_descriptors")).Where(sq.Expr("photo_id IN ("+sub+")", subArgs...)),
		r.qb().Delete(r.table("photos")).Where(sq.Eq{"session_id": id}),
	}
	for _, st := range stmts {
		sqlStr, args, _ := st.ToSql()
		r.logSQL("DeleteSession", sqlStr, args)
		if _, err := tx.Exec(ctx, sqlStr, args...); err != nil {
			r.logger.Printf("DeleteSession exec error after %s: %v", time.Since(start), err)
			return wrap("delete session children", err)
		}
	}

	sqlStr, args, _ := r.qb().Delete(r.table("sessions")).Where(sq.Eq{"id": id}).ToSql()
	r.logSQL("DeleteSession", sqlStr, args)
	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return wrap("delete session", err)
	}
	if tag.RowsAffected() == 0 {
		return wrap("delete session", pgx.ErrNoRows)
	}
	if err := tx.Commit(ctx); err != nil {
		return wrap("delete session commit", err)
	}
	r.logger.Printf("DeleteSession ok in %s id=%s", time.Since(start), id)
	return nil
}

func (r *PGRepo) ExpiredSessions(ctx context.Context, before time.Time, limit int) ([]domain.SessionID, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.qb().Select("id").From(r.table("sessions")).
		Where(sq.Lt{"expires_at": before}).OrderBy("expires_at ASC").Limit(uint64(limit))
	sqlStr, args, _ := q.ToSql()
	r.logSQL("ExpiredSessions", sqlStr, args)

	rows, err := r.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, wrap("expired sessions", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[domain.SessionID])
	if err != nil {
		return nil, wrap("expired sessions scan", err)
	}
	return ids, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
