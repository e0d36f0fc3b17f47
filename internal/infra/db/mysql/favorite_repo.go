package mysql

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"

	domain "github.com/bryanwahyu/policyscope/internal/domain/documents"
)

type FavoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Add(ctx context.Context, f *domain.Favorite) error {
	const q = `
INSERT INTO favorites (id, user_id, document_id, created_at)
VALUES (?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q, f.ID, f.UserID, f.DocumentID, f.CreatedAt)
	if me, ok := err.(*mysql.MySQLError); ok && me.Number == 1062 {
		return domain.ErrDuplicateFavorite
	}
	return err
}

func (r *FavoriteRepository) Remove(ctx context.Context, user string, id domain.DocumentID) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id=? AND document_id=?;", user, id)
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
	return nil
}

func (r *FavoriteRepository) ListByUser(ctx context.Context, user string) ([]*domain.Favorite, error) {
	const q = `
SELECT id, user_id, document_id, created_at
FROM favorites
WHERE user_id=?
ORDER BY created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q, user)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Favorite
	for rows.Next() {
		var f domain.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.DocumentID, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
