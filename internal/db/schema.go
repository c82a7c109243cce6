package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS daily_close (
	id          BIGSERIAL PRIMARY KEY,
	day         DATE NOT NULL UNIQUE,
	close       DOUBLE PRECISION NOT NULL,
	source      TEXT NOT NULL DEFAULT 'coingecko',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS backtest_run (
	id                   BIGSERIAL PRIMARY KEY,
	short_window         INT NOT NULL,
	long_window          INT NOT NULL,
	initial_balance      DOUBLE PRECISION NOT NULL,
	history_days         INT NOT NULL,
	total_trades         INT NOT NULL,
	win_rate             DOUBLE PRECISION NOT NULL,
	max_drawdown         DOUBLE PRECISION NOT NULL,
	final_strategy_value DOUBLE PRECISION NOT NULL,
	final_buyhold_value  DOUBLE PRECISION NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_backtest_run_created_at ON backtest_run (created_at DESC);
`

// EnsureSchema creates the tables if they do not exist. Idempotent, safe to
// run on every startup.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
