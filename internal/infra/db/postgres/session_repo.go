package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	domain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
)

type SessionRepository struct{ db *sql.DB }

func NewSessionRepository(db *sql.DB) *SessionRepository { return &SessionRepository{db: db} }

// Save insert/update session record
func (r *SessionRepository) Save(ctx context.Context, s *domain.Session) error {
	const q = `
INSERT INTO crawl_sessions
(id, user_id, url, document_types, status, documents_found, documents_analyzed,
 error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 documents_found = EXCLUDED.documents_found,
 documents_analyzed = EXCLUDED.documents_analyzed,
 error_message = EXCLUDED.error_message,
 updated_at = EXCLUDED.updated_at;`

	_, err := r.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.URL, joinTypes(s.DocumentTypes), s.Status,
		s.DocumentCount, s.AnalyzedCount, s.ErrorMessage,
		s.CreatedAt, s.UpdatedAt,
	)
	return err
}

const sessionColumns = `id, user_id, url, document_types, status,
       documents_found, documents_analyzed, error_message, created_at, updated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*domain.Session, error) {
	var s domain.Session
	var types string
	if err := row.Scan(
		&s.ID, &s.UserID, &s.URL, &types, &s.Status,
		&s.DocumentCount, &s.AnalyzedCount, &s.ErrorMessage,
		&s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.DocumentTypes = splitTypes(types)
	return &s, nil
}

func (r *SessionRepository) Get(ctx context.Context, user string, id domain.SessionID) (*domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM crawl_sessions WHERE user_id=$1 AND id=$2 LIMIT 1;`
	s, err := scanSession(r.db.QueryRowContext(ctx, q, user, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *SessionRepository) Paginate(ctx context.Context, user string, page, pageSize int, filter domain.HistoryFilter) (domain.PaginatedSessions, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + sessionColumns + ` FROM crawl_sessions WHERE user_id=$1`
	args := []interface{}{user}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, "%"+escapeLikePattern(string(filter.DocumentType))+"%")
		query += fmt.Sprintf(" AND document_types LIKE $%d", len(args))
	}

	args = append(args, pageSize, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedSessions{}, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return domain.PaginatedSessions{}, fmt.Errorf("scanning row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedSessions{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.count(ctx, user, filter)
	if err != nil {
		return domain.PaginatedSessions{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedSessions{
		Data:       sessions,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *SessionRepository) count(ctx context.Context, user string, filter domain.HistoryFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM crawl_sessions WHERE user_id=$1"
	args := []interface{}{user}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, "%"+escapeLikePattern(string(filter.DocumentType))+"%")
		query += fmt.Sprintf(" AND document_types LIKE $%d", len(args))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SessionRepository) Delete(ctx context.Context, user string, id domain.SessionID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM crawl_sessions WHERE user_id=$1 AND id=$2;", user, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	_, err = r.db.ExecContext(ctx,
		"DELETE FROM session_documents WHERE session_id=$1;", id)
	return err
}
