package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/btc-backtest-backend/internal/models"
)

type RunLogRepo struct {
	pool *pgxpool.Pool
}

func NewRunLogRepo(pool *pgxpool.Pool) *RunLogRepo {
	return &RunLogRepo{pool: pool}
}

func (r *RunLogRepo) Record(ctx context.Context, run *models.BacktestRun) (*models.BacktestRun, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO backtest_run
		 (short_window, long_window, initial_balance, history_days,
		  total_trades, win_rate, max_drawdown, final_strategy_value, final_buyhold_value)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING *`,
		run.ShortWindow, run.LongWindow, run.InitialBalance, run.HistoryDays,
		run.TotalTrades, run.WinRate, run.MaxDrawdown,
		run.FinalStrategyValue, run.FinalBuyHoldValue,
	)
	return scanRun(row)
}

// GetRecent returns the most recent logged runs, newest first.
func (r *RunLogRepo) GetRecent(ctx context.Context, limit int) ([]models.BacktestRun, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM backtest_run ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.BacktestRun
	for rows.Next() {
		var run models.BacktestRun
		if err := rows.Scan(
			&run.ID, &run.ShortWindow, &run.LongWindow, &run.InitialBalance, &run.HistoryDays,
			&run.TotalTrades, &run.WinRate, &run.MaxDrawdown,
			&run.FinalStrategyValue, &run.FinalBuyHoldValue, &run.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func scanRun(row scannable) (*models.BacktestRun, error) {
	var run models.BacktestRun
	err := row.Scan(
		&run.ID, &run.ShortWindow, &run.LongWindow, &run.InitialBalance, &run.HistoryDays,
		&run.TotalTrades, &run.WinRate, &run.MaxDrawdown,
		&run.FinalStrategyValue, &run.FinalBuyHoldValue, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
