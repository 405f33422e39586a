package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
)

// SQLiteRepository persists products, reviews, and issue snapshots.
type SQLiteRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.ReviewRepository = (*SQLiteRepository)(nil)

// Open connects to the sqlite database and bootstraps the schema.
func Open(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := NewSQLiteRepository(db)
	if err := repo.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteRepository wires an existing sql.DB.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Close releases the underlying connection pool.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Migrate creates the schema when absent. Reviews cascade-delete with their
// product; issues cascade with both product and snapshot replacement.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	statements := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS products (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			reviewer TEXT NOT NULL,
			rating REAL NOT NULL,
			verified INTEGER NOT NULL DEFAULT 1,
			text TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			review_date TEXT NOT NULL DEFAULT '',
			sentiment TEXT NOT NULL DEFAULT '',
			sentiment_score REAL NOT NULL DEFAULT 0,
			summary TEXT NOT NULL DEFAULT '',
			is_critical INTEGER NOT NULL DEFAULT 0,
			category TEXT NOT NULL DEFAULT 'other',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id)`,
		`CREATE TABLE IF NOT EXISTS issues (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			product_id INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			phrase TEXT NOT NULL,
			frequency INTEGER NOT NULL DEFAULT 0,
			avg_severity REAL NOT NULL DEFAULT 0,
			aspect TEXT NOT NULL DEFAULT 'general',
			snapshot_id TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_product ON issues(product_id)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// GetOrCreateProduct returns the product for pid, creating it on first use.
// The boolean reports whether a new row was created.
func (r *SQLiteRepository) GetOrCreateProduct(ctx context.Context, pid, name string) (domain.Product, bool, error) {
	product, err := r.ProductByPID(ctx, pid)
	if err == nil {
		return product, false, nil
	}
	if !errors.Is(err, domain.ErrProductNotFound) {
		return domain.Product{}, false, err
	}

	now := time.Now().UTC()
	query, args, err := r.sb.Insert("products").
		Columns("pid", "name", "created_at").
		Values(pid, name, now).
		ToSql()
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("insert product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Product{}, false, fmt.Errorf("product id: %w", err)
	}

	return domain.Product{ID: id, PID: pid, Name: name, CreatedAt: now}, true, nil
}

// ProductByPID looks a product up by its opaque external identifier.
func (r *SQLiteRepository) ProductByPID(ctx context.Context, pid string) (domain.Product, error) {
	return r.productWhere(ctx, sq.Eq{"pid": pid})
}

// ProductByName matches the display name case-insensitively by substring,
// the way the issues CLI filters products.
func (r *SQLiteRepository) ProductByName(ctx context.Context, name string) (domain.Product, error) {
	return r.productWhere(ctx, sq.Like{"LOWER(name)": "%" + strings.ToLower(name) + "%"})
}

func (r *SQLiteRepository) productWhere(ctx context.Context, pred any) (domain.Product, error) {
	query, args, err := r.sb.Select("id", "pid", "name", "created_at").
		From("products").
		Where(pred).
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Product{}, fmt.Errorf("build select: %w", err)
	}

	var p domain.Product
	row := r.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&p.ID, &p.PID, &p.Name, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

// ListProducts returns all products in creation order.
func (r *SQLiteRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	query, args, err := r.sb.Select("id", "pid", "name", "created_at").
		From("products").
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.PID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// DeleteProduct removes a product; reviews and issues cascade.
func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("products").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// SaveReview inserts a review and returns its id.
func (r *SQLiteRepository) SaveReview(ctx context.Context, review domain.Review) (int64, error) {
	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := r.sb.Insert("reviews").
		Columns("product_id", "reviewer", "rating", "verified", "text", "title",
			"location", "review_date", "sentiment", "sentiment_score", "summary",
			"is_critical", "category", "created_at").
		Values(review.ProductID, review.Reviewer, review.Rating, review.Verified,
			review.Text, review.Title, review.Location, review.ReviewDate,
			string(review.Sentiment), review.SentimentScore, review.Summary,
			review.IsCritical, string(review.Category), createdAt).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}
	return res.LastInsertId()
}

// UpdateReview overwrites all mutable fields of a stored review.
func (r *SQLiteRepository) UpdateReview(ctx context.Context, review domain.Review) error {
	query, args, err := r.sb.Update("reviews").
		Set("reviewer", review.Reviewer).
		Set("rating", review.Rating).
		Set("verified", review.Verified).
		Set("text", review.Text).
		Set("title", review.Title).
		Set("location", review.Location).
		Set("review_date", review.ReviewDate).
		Set("sentiment", string(review.Sentiment)).
		Set("sentiment_score", review.SentimentScore).
		Set("summary", review.Summary).
		Set("is_critical", review.IsCritical).
		Set("category", string(review.Category)).
		Where(sq.Eq{"id": review.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

// DeleteReview removes one review row.
func (r *SQLiteRepository) DeleteReview(ctx context.Context, id int64) error {
	query, args, err := r.sb.Delete("reviews").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return nil
}

// ListReviews returns a product's reviews in insertion order.
func (r *SQLiteRepository) ListReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	return r.reviewsWhere(ctx, sq.Eq{"product_id": productID})
}

// ListReviewsByMaxRating returns reviews rated at or below the threshold.
func (r *SQLiteRepository) ListReviewsByMaxRating(ctx context.Context, productID int64, maxRating float64) ([]domain.Review, error) {
	return r.reviewsWhere(ctx, sq.And{
		sq.Eq{"product_id": productID},
		sq.LtOrEq{"rating": maxRating},
	})
}

// ListReviewsBySentiment returns reviews carrying the given label.
func (r *SQLiteRepository) ListReviewsBySentiment(ctx context.Context, productID int64, s domain.Sentiment) ([]domain.Review, error) {
	return r.reviewsWhere(ctx, sq.And{
		sq.Eq{"product_id": productID},
		sq.Eq{"sentiment": string(s)},
	})
}

func (r *SQLiteRepository) reviewsWhere(ctx context.Context, pred any) ([]domain.Review, error) {
	query, args, err := r.sb.Select("id", "product_id", "reviewer", "rating",
		"verified", "text", "title", "location", "review_date", "sentiment",
		"sentiment_score", "summary", "is_critical", "category", "created_at").
		From("reviews").
		Where(pred).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rev domain.Review
		var sentiment, category string
		if err := rows.Scan(&rev.ID, &rev.ProductID, &rev.Reviewer, &rev.Rating,
			&rev.Verified, &rev.Text, &rev.Title, &rev.Location, &rev.ReviewDate,
			&sentiment, &rev.SentimentScore, &rev.Summary, &rev.IsCritical,
			&category, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		rev.Sentiment = domain.Sentiment(sentiment)
		rev.Category = domain.Category(category)
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

// ReplaceIssues swaps the product's issue list for a new snapshot inside one
// transaction: insert the new rows, then drop every row belonging to another
// snapshot. A concurrent reader sees either the old snapshot or the new one.
func (r *SQLiteRepository) ReplaceIssues(ctx context.Context, productID int64, snapshotID string, issues []domain.Issue) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, issue := range issues {
		query, args, err := r.sb.Insert("issues").
			Columns("product_id", "phrase", "frequency", "avg_severity", "aspect", "snapshot_id").
			Values(productID, issue.Phrase, issue.Frequency, issue.AvgSeverity, issue.Aspect, snapshotID).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert issue: %w", err)
		}
	}

	query, args, err := r.sb.Delete("issues").
		Where(sq.And{
			sq.Eq{"product_id": productID},
			sq.NotEq{"snapshot_id": snapshotID},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("drop stale snapshots: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// ListIssues returns the product's live issue snapshot, most frequent first.
func (r *SQLiteRepository) ListIssues(ctx context.Context, productID int64) ([]domain.Issue, error) {
	query, args, err := r.sb.Select("id", "product_id", "phrase", "frequency", "avg_severity", "aspect", "snapshot_id").
		From("issues").
		Where(sq.Eq{"product_id": productID}).
		OrderBy("frequency DESC", "phrase").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		var issue domain.Issue
		if err := rows.Scan(&issue.ID, &issue.ProductID, &issue.Phrase,
			&issue.Frequency, &issue.AvgSeverity, &issue.Aspect, &issue.SnapshotID); err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}
