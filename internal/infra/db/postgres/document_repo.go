package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	crawldomain "github.com/bryanwahyu/policyscope/internal/domain/crawl"
	domain "github.com/bryanwahyu/policyscope/internal/domain/documents"
)

type DocumentRepository struct{ db *sql.DB }

func NewDocumentRepository(db *sql.DB) *DocumentRepository { return &DocumentRepository{db: db} }

// Save insert/update one cached document version
func (r *DocumentRepository) Save(ctx context.Context, d *domain.Document) error {
	const q = `
INSERT INTO documents
(id, base_url, url, doc_type, title, text, text_hash, word_count, version,
 crawl_status, snapshot_url, last_crawled, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (id) DO UPDATE SET
 title = EXCLUDED.title,
 text = EXCLUDED.text,
 text_hash = EXCLUDED.text_hash,
 word_count = EXCLUDED.word_count,
 version = EXCLUDED.version,
 crawl_status = EXCLUDED.crawl_status,
 snapshot_url = EXCLUDED.snapshot_url,
 last_crawled = EXCLUDED.last_crawled,
 updated_at = EXCLUDED.updated_at;`

	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.BaseURL, d.URL, d.Type, d.Title, d.Text, d.TextHash,
		d.WordCount, d.Version, d.CrawlStatus, d.SnapshotURL,
		d.LastCrawled, d.CreatedAt, d.UpdatedAt,
	)
	return err
}

const documentColumns = `id, base_url, url, doc_type, title, text, text_hash,
       word_count, version, crawl_status, snapshot_url, last_crawled, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*domain.Document, error) {
	var d domain.Document
	if err := row.Scan(
		&d.ID, &d.BaseURL, &d.URL, &d.Type, &d.Title, &d.Text, &d.TextHash,
		&d.WordCount, &d.Version, &d.CrawlStatus, &d.SnapshotURL,
		&d.LastCrawled, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DocumentRepository) Get(ctx context.Context, id domain.DocumentID) (*domain.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id=$1 LIMIT 1;`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func (r *DocumentRepository) FindByURL(ctx context.Context, url string) (*domain.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE url=$1 ORDER BY version DESC LIMIT 1;`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

func (r *DocumentRepository) MarkStale(ctx context.Context, url string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET crawl_status=$1, updated_at=NOW() WHERE url=$2;",
		domain.CrawlStale, url)
	return err
}

func (r *DocumentRepository) Search(ctx context.Context, page, pageSize int, filter domain.SearchFilter) (domain.PaginatedDocuments, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	args := []interface{}{}

	if filter.Query != "" {
		term := "%" + escapeLikePattern(filter.Query) + "%"
		args = append(args, term)
		query += fmt.Sprintf(" AND (title ILIKE $%d OR url ILIKE $%d)", len(args), len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		query += fmt.Sprintf(" AND doc_type = $%d", len(args))
	}
	if filter.Domain != "" {
		args = append(args, "%"+escapeLikePattern(filter.Domain)+"%")
		query += fmt.Sprintf(" AND base_url ILIKE $%d", len(args))
	}

	args = append(args, pageSize, offset)
	query += fmt.Sprintf(" ORDER BY last_crawled DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedDocuments{}, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return domain.PaginatedDocuments{}, fmt.Errorf("scanning row: %w", err)
		}
		docs = append(docs, d)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedDocuments{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.countSearch(ctx, filter)
	if err != nil {
		return domain.PaginatedDocuments{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.PaginatedDocuments{
		Data:       docs,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}, nil
}

func (r *DocumentRepository) countSearch(ctx context.Context, filter domain.SearchFilter) (int64, error) {
	query := "SELECT COUNT(*) FROM documents WHERE 1=1"
	args := []interface{}{}
	if filter.Query != "" {
		term := "%" + escapeLikePattern(filter.Query) + "%"
		args = append(args, term)
		query += fmt.Sprintf(" AND (title ILIKE $%d OR url ILIKE $%d)", len(args), len(args))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		query += fmt.Sprintf(" AND doc_type = $%d", len(args))
	}
	if filter.Domain != "" {
		args = append(args, "%"+escapeLikePattern(filter.Domain)+"%")
		query += fmt.Sprintf(" AND base_url ILIKE $%d", len(args))
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id domain.DocumentID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id=$1;", id)
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

func (r *DocumentRepository) LinkSession(ctx context.Context, session crawldomain.SessionID, id domain.DocumentID) error {
	const q = `
INSERT INTO session_documents (session_id, document_id)
VALUES ($1,$2)
ON CONFLICT (session_id, document_id) DO NOTHING;`
	_, err := r.db.ExecContext(ctx, q, session, id)
	return err
}

func (r *DocumentRepository) ListBySession(ctx context.Context, session crawldomain.SessionID) ([]*domain.Document, error) {
	q := `
SELECT ` + documentColumns + `
FROM documents d
JOIN session_documents sd ON sd.document_id = d.id
WHERE sd.session_id=$1
ORDER BY d.doc_type;`
	rows, err := r.db.QueryContext(ctx, q, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type AnalysisRepository struct{ db *sql.DB }

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository { return &AnalysisRepository{db: db} }

func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, document_id, document_url, text_hash, summary_one_sentence, summary_100_words,
 word_frequency, measurements, model, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
 summary_one_sentence = EXCLUDED.summary_one_sentence,
 summary_100_words = EXCLUDED.summary_100_words,
 word_frequency = EXCLUDED.word_frequency,
 measurements = EXCLUDED.measurements,
 model = EXCLUDED.model;`

	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.DocumentID, a.DocumentURL, a.TextHash,
		a.SummarySentence, a.SummaryBrief,
		marshalJSON(a.WordFrequency), marshalJSON(a.Measurements),
		a.Model, a.CreatedAt,
	)
	return err
}

const analysisColumns = `id, document_id, document_url, text_hash,
       summary_one_sentence, summary_100_words, word_frequency, measurements, model, created_at`

func scanAnalysis(row interface{ Scan(...interface{}) error }) (*domain.Analysis, error) {
	var a domain.Analysis
	var freq, meas []byte
	if err := row.Scan(
		&a.ID, &a.DocumentID, &a.DocumentURL, &a.TextHash,
		&a.SummarySentence, &a.SummaryBrief, &freq, &meas, &a.Model, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(freq, &a.WordFrequency); err != nil {
		return nil, fmt.Errorf("decoding word_frequency: %w", err)
	}
	if err := json.Unmarshal(meas, &a.Measurements); err != nil {
		return nil, fmt.Errorf("decoding measurements: %w", err)
	}
	return &a, nil
}

func (r *AnalysisRepository) GetByDocument(ctx context.Context, id domain.DocumentID) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE document_id=$1 ORDER BY created_at DESC LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

func (r *AnalysisRepository) FindByHash(ctx context.Context, url, textHash string) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE document_url=$1 AND text_hash=$2 ORDER BY created_at DESC LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, url, textHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}
