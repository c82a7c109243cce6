package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/btc-backtest-backend/internal/models"
)

// UTCDay formats a timestamp as its UTC calendar date. Daily closes are
// keyed by this value; CoinGecko daily points land at 00:00 UTC.
func UTCDay(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}

type CloseRepo struct {
	pool *pgxpool.Pool
}

func NewCloseRepo(pool *pgxpool.Pool) *CloseRepo {
	return &CloseRepo{pool: pool}
}

func (r *CloseRepo) Upsert(ctx context.Context, ts time.Time, close float64, source string) (*models.DailyClose, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO daily_close (day, close, source)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (day) DO UPDATE SET close = EXCLUDED.close, source = EXCLUDED.source
		 RETURNING *`,
		UTCDay(ts), close, source,
	)
	return scanClose(row)
}

// UpsertBatch writes a whole fetched series in one round trip. Re-fetching
// overlapping ranges is the normal case, so conflicts just refresh the close.
func (r *CloseRepo) UpsertBatch(ctx context.Context, points []models.DailyClose) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(
			`INSERT INTO daily_close (day, close, source)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (day) DO UPDATE SET close = EXCLUDED.close, source = EXCLUDED.source`,
			p.Day, p.Close, p.Source,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	written := 0
	for range points {
		if _, err := br.Exec(); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// GetLastN returns up to n most recent daily closes in ascending day order.
func (r *CloseRepo) GetLastN(ctx context.Context, n int) ([]models.DailyClose, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM (
			SELECT * FROM daily_close ORDER BY day DESC LIMIT $1
		 ) recent ORDER BY day ASC`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCloses(rows)
}

func (r *CloseRepo) GetLatest(ctx context.Context) (*models.DailyClose, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM daily_close ORDER BY day DESC LIMIT 1`,
	)
	c, err := scanClose(row)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *CloseRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM daily_close`).Scan(&count)
	return count, err
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

func scanClose(row scannable) (*models.DailyClose, error) {
	var c models.DailyClose
	var day time.Time
	err := row.Scan(&c.ID, &day, &c.Close, &c.Source, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.Day = day.Format("2006-01-02")
	return &c, nil
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectCloses(rows rowsIter) ([]models.DailyClose, error) {
	var out []models.DailyClose
	for rows.Next() {
		var c models.DailyClose
		var day time.Time
		if err := rows.Scan(&c.ID, &day, &c.Close, &c.Source, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Day = day.Format("2006-01-02")
		out = append(out, c)
	}
	return out, rows.Err()
}
