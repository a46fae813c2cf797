// Package journal writes a run's day summaries and trades to SQLite.
// The journal is output only; a run never reads it back.
package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/efreitasn/hermes/internal/domain"
)

// DayRow is one row of the days table.
type DayRow struct {
	Day         int    `db:"day"`
	SellOrders  int    `db:"sell_orders"`
	BuyOrders   int    `db:"buy_orders"`
	SellValue   int64  `db:"sell_value"`
	BuyValue    int64  `db:"buy_value"`
	Trades      int    `db:"trades"`
	UnitsTraded int64  `db:"units_traded"`
	TradedValue int64  `db:"traded_value"`
	Failed      int    `db:"failed"`
	TotalMoney  int64  `db:"total_money"`
	StartedAt   string `db:"started_at"`
	DurationMS  int64  `db:"duration_ms"`
}

// Journal wraps a SQLite connection.
type Journal struct {
	conn *sqlx.DB
}

// Open opens or creates the journal database at path. ":memory:" gives a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	dsn := path + "?_pragma=busy_timeout(5000)"
	if !strings.HasPrefix(path, ":memory:") {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// A single connection keeps writes serialised and an in-memory
	// database alive for the journal's lifetime.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS days (
		day INTEGER PRIMARY KEY,
		sell_orders INTEGER NOT NULL,
		buy_orders INTEGER NOT NULL,
		sell_value INTEGER NOT NULL,
		buy_value INTEGER NOT NULL,
		trades INTEGER NOT NULL,
		units_traded INTEGER NOT NULL,
		traded_value INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		total_money INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS day_goods (
		day INTEGER NOT NULL,
		good TEXT NOT NULL,
		sell_orders INTEGER NOT NULL,
		buy_orders INTEGER NOT NULL,
		trades INTEGER NOT NULL,
		units_traded INTEGER NOT NULL,
		value INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		PRIMARY KEY (day, good)
	);

	CREATE TABLE IF NOT EXISTS trades (
		trade_id TEXT PRIMARY KEY,
		day INTEGER NOT NULL,
		good TEXT NOT NULL,
		amount INTEGER NOT NULL,
		cost INTEGER NOT NULL,
		seller_id INTEGER NOT NULL,
		buyer_id INTEGER NOT NULL,
		sell_order_id TEXT NOT NULL,
		buy_order_id TEXT NOT NULL,
		executed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_trades_day ON trades(day);
	CREATE INDEX IF NOT EXISTS idx_trades_seller ON trades(seller_id);
	CREATE INDEX IF NOT EXISTS idx_trades_buyer ON trades(buyer_id);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// RecordDay writes a day's summary, its per-good statistics and its trades
// in one transaction. Recording the same day again replaces the summary.
func (j *Journal) RecordDay(ctx context.Context, s *domain.DaySummary, trades []*domain.Trade) error {
	tx, err := j.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO days
		(day, sell_orders, buy_orders, sell_value, buy_value, trades,
		 units_traded, traded_value, failed, total_money, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Day, s.SellOrders, s.BuyOrders, s.SellValue, s.BuyValue, s.Trades,
		s.UnitsTraded, s.TradedValue, s.Failed, s.TotalMoney,
		s.StartedAt.UTC().Format(timeLayout), s.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert day: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM day_goods WHERE day = ?", s.Day); err != nil {
		return fmt.Errorf("clear day goods: %w", err)
	}
	for _, gs := range s.Goods {
		_, err := tx.ExecContext(ctx, `INSERT INTO day_goods
			(day, good, sell_orders, buy_orders, trades, units_traded, value, failed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.Day, gs.Good.String(), gs.SellOrders, gs.BuyOrders, gs.Trades,
			gs.UnitsTraded, gs.Value, gs.Failed,
		)
		if err != nil {
			return fmt.Errorf("insert day goods: %w", err)
		}
	}

	if len(trades) > 0 {
		stmt, err := tx.PreparexContext(ctx, `INSERT OR REPLACE INTO trades
			(trade_id, day, good, amount, cost, seller_id, buyer_id,
			 sell_order_id, buy_order_id, executed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, t := range trades {
			_, err := stmt.ExecContext(ctx,
				t.TradeID, t.Day, t.Good.String(), t.Amount, t.Cost, t.SellerID, t.BuyerID,
				t.SellOrderID, t.BuyOrderID, t.ExecutedAt.UTC().Format(timeLayout),
			)
			if err != nil {
				return fmt.Errorf("insert trade %s: %w", t.TradeID, err)
			}
		}
	}

	return tx.Commit()
}

// Days returns every recorded day in ascending order.
func (j *Journal) Days(ctx context.Context) ([]DayRow, error) {
	var rows []DayRow
	err := j.conn.SelectContext(ctx, &rows, `SELECT day, sell_orders, buy_orders, sell_value,
		buy_value, trades, units_traded, traded_value, failed, total_money, started_at, duration_ms
		FROM days ORDER BY day`)
	return rows, err
}

// TradeCount returns the number of trades recorded for day.
func (j *Journal) TradeCount(ctx context.Context, day int) (int, error) {
	var n int
	err := j.conn.GetContext(ctx, &n, "SELECT COUNT(*) FROM trades WHERE day = ?", day)
	return n, err
}

// GoodVolume returns the units of g traded over the whole run.
func (j *Journal) GoodVolume(ctx context.Context, g domain.Good) (int64, error) {
	var n int64
	err := j.conn.GetContext(ctx, &n, "SELECT COALESCE(SUM(units_traded), 0) FROM day_goods WHERE good = ?", g.String())
	return n, err
}

const timeLayout = "2006-01-02T15:04:05.000000000Z"
