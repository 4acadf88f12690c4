package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/jonesrussell/siteatlas/internal/domain"
	"github.com/jonesrussell/siteatlas/internal/urlkey"
)

const (
	// DefaultMaxOpenConns is the default maximum number of open connections.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections.
	DefaultMaxIdleConns = 5
	// DefaultConnMaxLifetime is the default maximum connection lifetime.
	DefaultConnMaxLifetime = 5 * time.Minute
	// DefaultPingTimeout is the default timeout for ping operations.
	DefaultPingTimeout = 5 * time.Second
)

// PostgresConfig holds database connection configuration.
type PostgresConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     string `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	DBName   string `yaml:"dbname" json:"dbname"`
	SSLMode  string `yaml:"sslmode" json:"sslmode"`
}

// NewPostgresConnection creates a new PostgreSQL database connection.
func NewPostgresConnection(cfg PostgresConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), DefaultPingTimeout)
	defer cancel()
	if pingErr := db.PingContext(ctx); pingErr != nil {
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return db, nil
}

// PostgresStore is the durable knowledge store backed by PostgreSQL.
// Upserts use ON CONFLICT so concurrent writes cannot create duplicates.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a PostgreSQL-backed knowledge store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the pages and links tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pages (
		job_id       TEXT NOT NULL,
		url_hash     CHAR(64) NOT NULL,
		url          TEXT NOT NULL,
		depth        INT NOT NULL,
		visited_at   TIMESTAMPTZ NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		headings     JSONB NOT NULL DEFAULT '[]',
		paragraphs   JSONB NOT NULL DEFAULT '[]',
		body_text    TEXT NOT NULL DEFAULT '',
		topics       JSONB NOT NULL DEFAULT '{}',
		entities     JSONB NOT NULL DEFAULT '[]',
		forms        JSONB NOT NULL DEFAULT '[]',
		embedding_id TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (job_id, url_hash)
	);

	CREATE TABLE IF NOT EXISTS links (
		job_id        TEXT NOT NULL,
		from_hash     CHAR(64) NOT NULL,
		to_hash       CHAR(64) NOT NULL,
		from_url      TEXT NOT NULL,
		to_url        TEXT NOT NULL,
		anchor_text   TEXT NOT NULL DEFAULT '',
		link_type     TEXT NOT NULL,
		attributes    JSONB NOT NULL DEFAULT '{}',
		discovered_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (job_id, from_hash, to_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_links_to ON links (job_id, to_hash);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate knowledge store: %w", err)
	}
	return nil
}

// pageRow is the sqlx row shape for the pages table.
type pageRow struct {
	JobID       string    `db:"job_id"`
	URLHash     string    `db:"url_hash"`
	URL         string    `db:"url"`
	Depth       int       `db:"depth"`
	VisitedAt   time.Time `db:"visited_at"`
	Title       string    `db:"title"`
	Headings    []byte    `db:"headings"`
	Paragraphs  []byte    `db:"paragraphs"`
	BodyText    string    `db:"body_text"`
	Topics      []byte    `db:"topics"`
	Entities    []byte    `db:"entities"`
	Forms       []byte    `db:"forms"`
	EmbeddingID string    `db:"embedding_id"`
}

// toPage converts a row back into the domain model.
func (r *pageRow) toPage() (*domain.Page, error) {
	page := &domain.Page{
		JobID:       r.JobID,
		URLHash:     r.URLHash,
		URL:         r.URL,
		Depth:       r.Depth,
		VisitedAt:   r.VisitedAt,
		EmbeddingID: r.EmbeddingID,
		Summary: domain.ContentSummary{
			Title: r.Title,
			Text:  r.BodyText,
		},
	}
	if err := json.Unmarshal(r.Headings, &page.Summary.Headings); err != nil {
		return nil, fmt.Errorf("decode headings: %w", err)
	}
	if err := json.Unmarshal(r.Paragraphs, &page.Summary.Paragraphs); err != nil {
		return nil, fmt.Errorf("decode paragraphs: %w", err)
	}
	if err := json.Unmarshal(r.Topics, &page.Topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}
	if err := json.Unmarshal(r.Entities, &page.Entities); err != nil {
		return nil, fmt.Errorf("decode entities: %w", err)
	}
	if err := json.Unmarshal(r.Forms, &page.Forms); err != nil {
		return nil, fmt.Errorf("decode forms: %w", err)
	}
	return page, nil
}

// StorePage upserts a page by its canonical key.
func (s *PostgresStore) StorePage(ctx context.Context, page *domain.Page) error {
	hash, err := urlkey.Hash(page.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	page.URLHash = hash

	headings, err := json.Marshal(page.Summary.Headings)
	if err != nil {
		return fmt.Errorf("encode headings: %w", err)
	}
	paragraphs, err := json.Marshal(page.Summary.Paragraphs)
	if err != nil {
		return fmt.Errorf("encode paragraphs: %w", err)
	}
	topics, err := json.Marshal(page.Topics)
	if err != nil {
		return fmt.Errorf("encode topics: %w", err)
	}
	entities, err := json.Marshal(page.Entities)
	if err != nil {
		return fmt.Errorf("encode entities: %w", err)
	}
	forms, err := json.Marshal(page.Forms)
	if err != nil {
		return fmt.Errorf("encode forms: %w", err)
	}

	query := `
		INSERT INTO pages (job_id, url_hash, url, depth, visited_at, title,
		                   headings, paragraphs, body_text, topics, entities,
		                   forms, embedding_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (job_id, url_hash)
		DO UPDATE SET
			url          = EXCLUDED.url,
			visited_at   = EXCLUDED.visited_at,
			title        = EXCLUDED.title,
			headings     = EXCLUDED.headings,
			paragraphs   = EXCLUDED.paragraphs,
			body_text    = EXCLUDED.body_text,
			topics       = EXCLUDED.topics,
			entities     = EXCLUDED.entities,
			forms        = EXCLUDED.forms,
			embedding_id = EXCLUDED.embedding_id
	`

	if _, err = s.db.ExecContext(ctx, query,
		page.JobID, hash, page.URL, page.Depth, page.VisitedAt,
		page.Summary.Title, headings, paragraphs, page.Summary.Text,
		topics, entities, forms, page.EmbeddingID,
	); err != nil {
		return fmt.Errorf("failed to store page: %w", err)
	}
	return nil
}

// GetPage returns the page stored under url, or ErrPageNotFound.
func (s *PostgresStore) GetPage(ctx context.Context, jobID, url string) (*domain.Page, error) {
	hash, err := urlkey.Hash(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var row pageRow
	query := `SELECT * FROM pages WHERE job_id = $1 AND url_hash = $2`
	if err = s.db.GetContext(ctx, &row, query, jobID, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPageNotFound
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}
	return row.toPage()
}

// linkRow is the sqlx row shape for the links table.
type linkRow struct {
	JobID        string          `db:"job_id"`
	FromHash     string          `db:"from_hash"`
	ToHash       string          `db:"to_hash"`
	FromURL      string          `db:"from_url"`
	ToURL        string          `db:"to_url"`
	AnchorText   string          `db:"anchor_text"`
	LinkType     string          `db:"link_type"`
	Attributes   domain.JSONBMap `db:"attributes"`
	DiscoveredAt time.Time       `db:"discovered_at"`
}

// toLink converts a row back into the domain model.
func (r *linkRow) toLink() domain.Link {
	return domain.Link{
		JobID:        r.JobID,
		FromURL:      r.FromURL,
		ToURL:        r.ToURL,
		AnchorText:   r.AnchorText,
		Type:         domain.LinkType(r.LinkType),
		Attributes:   r.Attributes,
		DiscoveredAt: r.DiscoveredAt,
	}
}

// StoreLink upserts a link by its (from, to) composite key. The target does
// not need a stored page.
func (s *PostgresStore) StoreLink(ctx context.Context, link *domain.Link) error {
	fromHash, err := urlkey.Hash(link.FromURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	toHash, err := urlkey.Hash(link.ToURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	query := `
		INSERT INTO links (job_id, from_hash, to_hash, from_url, to_url,
		                   anchor_text, link_type, attributes, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (job_id, from_hash, to_hash)
		DO UPDATE SET
			anchor_text = EXCLUDED.anchor_text,
			link_type   = EXCLUDED.link_type,
			attributes  = EXCLUDED.attributes
	`

	if _, err = s.db.ExecContext(ctx, query,
		link.JobID, fromHash, toHash, link.FromURL, link.ToURL,
		link.AnchorText, string(link.Type), link.Attributes, link.DiscoveredAt,
	); err != nil {
		return fmt.Errorf("failed to store link: %w", err)
	}
	return nil
}

// GetLinksFrom returns links whose source is url, oldest first.
func (s *PostgresStore) GetLinksFrom(ctx context.Context, jobID, url string) ([]domain.Link, error) {
	hash, err := urlkey.Hash(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	query := `SELECT * FROM links WHERE job_id = $1 AND from_hash = $2 ORDER BY discovered_at`
	return s.queryLinks(ctx, query, jobID, hash)
}

// GetLinksTo returns links whose target is url, oldest first.
func (s *PostgresStore) GetLinksTo(ctx context.Context, jobID, url string) ([]domain.Link, error) {
	hash, err := urlkey.Hash(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	query := `SELECT * FROM links WHERE job_id = $1 AND to_hash = $2 ORDER BY discovered_at`
	return s.queryLinks(ctx, query, jobID, hash)
}

// queryLinks runs a link query and maps the rows.
func (s *PostgresStore) queryLinks(ctx context.Context, query string, args ...any) ([]domain.Link, error) {
	var rows []linkRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}

	links := make([]domain.Link, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toLink())
	}
	return links, nil
}

// ListPages returns all pages stored for a job.
func (s *PostgresStore) ListPages(ctx context.Context, jobID string) ([]domain.Page, error) {
	var rows []pageRow
	query := `SELECT * FROM pages WHERE job_id = $1 ORDER BY visited_at`
	if err := s.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := make([]domain.Page, 0, len(rows))
	for i := range rows {
		page, err := rows[i].toPage()
		if err != nil {
			return nil, err
		}
		pages = append(pages, *page)
	}
	return pages, nil
}

// CountPages returns the number of pages stored for a job.
func (s *PostgresStore) CountPages(ctx context.Context, jobID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM pages WHERE job_id = $1`, jobID); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return count, nil
}

// CountLinks returns the number of links stored for a job.
func (s *PostgresStore) CountLinks(ctx context.Context, jobID string) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM links WHERE job_id = $1`, jobID); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}
