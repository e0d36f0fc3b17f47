package mysql

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

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Save insert/update one cached document version
func (r *DocumentRepository) Save(ctx context.Context, d *domain.Document) error {
	const q = `
INSERT INTO documents
(id, base_url, url, doc_type, title, text, text_hash, word_count, version,
 crawl_status, snapshot_url, last_crawled, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 title=VALUES(title),
 text=VALUES(text),
 text_hash=VALUES(text_hash),
 word_count=VALUES(word_count),
 version=VALUES(version),
 crawl_status=VALUES(crawl_status),
 snapshot_url=VALUES(snapshot_url),
 last_crawled=VALUES(last_crawled),
 updated_at=VALUES(updated_at);
`
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
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id=? LIMIT 1;`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

// FindByURL returns the current (highest) version for a canonical URL.
func (r *DocumentRepository) FindByURL(ctx context.Context, url string) (*domain.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE url=? ORDER BY version DESC LIMIT 1;`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return d, err
}

// MarkStale flags every version of a URL whose refetch failed.
func (r *DocumentRepository) MarkStale(ctx context.Context, url string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE documents SET crawl_status=?, updated_at=NOW() WHERE url=?;",
		domain.CrawlStale, url)
	return err
}

// Search pages through the cache filtered by text query, type, and domain.
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
		query += " AND (title LIKE ? OR url LIKE ?)"
		term := "%" + escapeLikePattern(filter.Query) + "%"
		args = append(args, term, term)
	}
	if filter.DocumentType != "" {
		query += " AND doc_type = ?"
		args = append(args, filter.DocumentType)
	}
	if filter.Domain != "" {
		query += " AND base_url LIKE ?"
		args = append(args, "%"+escapeLikePattern(filter.Domain)+"%")
	}

	query += " ORDER BY last_crawled DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, offset)

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
		query += " AND (title LIKE ? OR url LIKE ?)"
		term := "%" + escapeLikePattern(filter.Query) + "%"
		args = append(args, term, term)
	}
	if filter.DocumentType != "" {
		query += " AND doc_type = ?"
		args = append(args, filter.DocumentType)
	}
	if filter.Domain != "" {
		query += " AND base_url LIKE ?"
		args = append(args, "%"+escapeLikePattern(filter.Domain)+"%")
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id domain.DocumentID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE id=?;", id)
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

// LinkSession records the many-to-many between sessions and documents.
func (r *DocumentRepository) LinkSession(ctx context.Context, session crawldomain.SessionID, id domain.DocumentID) error {
	const q = `
INSERT INTO session_documents (session_id, document_id)
VALUES (?,?)
ON DUPLICATE KEY UPDATE document_id=VALUES(document_id);
`
	_, err := r.db.ExecContext(ctx, q, session, id)
	return err
}

func (r *DocumentRepository) ListBySession(ctx context.Context, session crawldomain.SessionID) ([]*domain.Document, error) {
	q := `
SELECT ` + documentColumns + `
FROM documents d
JOIN session_documents sd ON sd.document_id = d.id
WHERE sd.session_id=?
ORDER BY d.doc_type;
`
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

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save insert/update analysis record. JSON columns hold the word frequency
// and measurement maps.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO analyses
(id, document_id, document_url, text_hash, summary_one_sentence, summary_100_words,
 word_frequency, measurements, model, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 summary_one_sentence=VALUES(summary_one_sentence),
 summary_100_words=VALUES(summary_100_words),
 word_frequency=VALUES(word_frequency),
 measurements=VALUES(measurements),
 model=VALUES(model);
`
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
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE document_id=? ORDER BY created_at DESC LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}

// FindByHash matches an analysis to an exact text version of a URL.
func (r *AnalysisRepository) FindByHash(ctx context.Context, url, textHash string) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + ` FROM analyses WHERE document_url=? AND text_hash=? ORDER BY created_at DESC LIMIT 1;`
	a, err := scanAnalysis(r.db.QueryRowContext(ctx, q, url, textHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return a, err
}
