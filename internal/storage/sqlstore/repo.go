package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"review_ingest/internal/domain"
)

// insertBatch rows per multi-row INSERT; 11 params each keeps us far below
// SQLite's and MySQL's placeholder limits.
const insertBatch = 500

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct {
	db     *sql.DB
	driver string // sqlite|mysql
}

func New(db *sql.DB, driver string) *Repo { return &Repo{db: db, driver: driver} }

// Open opens and pings the store. Errors wrap domain.ErrPersistence.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", domain.ErrPersistence, driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", domain.ErrPersistence, driver, err)
	}
	return db, nil
}

// Write makes Repo a pipeline sink.
func (r *Repo) Write(ctx context.Context, t domain.Table) error { return r.ReplaceAll(ctx, t) }

// ReplaceAll creates the reviews table if absent and overwrites its contents
// with t inside a single transaction.
func (r *Repo) ReplaceAll(ctx context.Context, t domain.Table) error {
	// DDL outside the tx: MySQL commits implicitly on CREATE.
	if _, err := r.db.ExecContext(ctx, createReviewsSQL); err != nil {
		return fmt.Errorf("%w: create table: %w", domain.ErrPersistence, err)
	}
	if r.driver == "sqlite" {
		if _, err := r.db.ExecContext(ctx, createASINIndexSQLite); err != nil {
			return fmt.Errorf("%w: create index: %w", domain.ErrPersistence, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrPersistence, err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, deleteReviewsSQL); err != nil {
		return fmt.Errorf("%w: clear table: %w", domain.ErrPersistence, err)
	}
	for lo := 0; lo < len(t); lo += insertBatch {
		hi := min(lo+insertBatch, len(t))
		if err := insertRows(ctx, tx, t[lo:hi]); err != nil {
			return fmt.Errorf("%w: insert rows %d-%d: %w", domain.ErrPersistence, lo, hi, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrPersistence, err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, rs domain.Table) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*11) // 11 params per row
	for _, rv := range rs {
		values = append(values, reviewPlaceholders)
		args = append(args,
			valStr(rv.ReviewerID),
			valStr(rv.ASIN),
			valStr(rv.ReviewerName),
			valInt64(rv.Vote),
			valStr(rv.Style),
			rv.ReviewText,
			valF64(rv.Overall),
			rv.Summary,
			valInt64(rv.UnixReviewTime),
			valStr(rv.ReviewTime),
			valStr(rv.Image),
		)
	}
	_, err := tx.ExecContext(ctx, insertReviewsPrefix+strings.Join(values, ","), args...)
	return err
}

func (r *Repo) Summary(ctx context.Context) (domain.Summary, error) {
	hardcover, top := hardcoverSQLite, topASINSQLite
	if r.driver == "mysql" {
		hardcover, top = hardcoverMySQL, topASINMySQL
	}

	rows, err := r.db.QueryContext(ctx, hardcover)
	if err != nil {
		return domain.Summary{}, err
	}
	defer rows.Close()
	var s domain.Summary
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return domain.Summary{}, err
		}
		s.HardcoverASINs = append(s.HardcoverASINs, a)
	}
	if err := rows.Err(); err != nil {
		return domain.Summary{}, err
	}

	var asin string
	var n int
	switch err := r.db.QueryRowContext(ctx, top).Scan(&asin, &n); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Summary{}, err
	default:
		s.TopASIN, s.TopCount = &asin, n
	}
	return s, nil
}

func (r *Repo) ListByASIN(ctx context.Context, asin string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rows, err := r.db.QueryContext(ctx, listByASINSQL, asin, pg.Limit)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			reviewerID, asinCol, name sql.NullString
			vote, unixTime            sql.NullInt64
			style, text, summary      sql.NullString
			overall                   sql.NullFloat64
			reviewTime, image         sql.NullString
		)
		if err := rows.Scan(
			&reviewerID, &asinCol, &name, &vote, &style, &text,
			&overall, &summary, &unixTime, &reviewTime, &image,
		); err != nil {
			return domain.ReviewsPage{}, err
		}
		out = append(out, domain.Review{
			ReviewerID:     nullStr(reviewerID),
			ASIN:           nullStr(asinCol),
			ReviewerName:   nullStr(name),
			Vote:           nullInt(vote),
			Style:          nullStr(style),
			ReviewText:     text.String,
			Overall:        nullF64(overall),
			Summary:        summary.String,
			UnixReviewTime: nullInt(unixTime),
			ReviewTime:     nullStr(reviewTime),
			Image:          nullStr(image),
		})
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}
	if len(out) == 0 {
		return domain.ReviewsPage{}, domain.ErrNotFound
	}
	return domain.ReviewsPage{Items: out}, nil
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullF64(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
