package clickhouse

import (
	"context"
	"fmt"
	"time"

	"dexsignal/internal/domain"
	"dexsignal/internal/storage"
)

// SwapArchive implements storage.SwapArchive using ClickHouse. Amounts are
// stored as decimal strings so large integer amounts survive unchanged.
type SwapArchive struct {
	conn *Conn
}

// NewSwapArchive creates a new SwapArchive.
func NewSwapArchive(conn *Conn) *SwapArchive {
	return &SwapArchive{conn: conn}
}

// Compile-time interface check.
var _ storage.SwapArchive = (*SwapArchive)(nil)

// InsertBatch appends a batch of swap records.
func (s *SwapArchive) InsertBatch(ctx context.Context, records []domain.SwapRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO swap_records (
			ts, pool, sender, recipient,
			sold_address, sold_symbol, sold_amount,
			bought_address, bought_symbol, bought_amount
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		err = batch.Append(
			time.Unix(r.Timestamp, 0).UTC(), r.Pool, r.Sender, r.Recipient,
			r.Sold.Address, r.Sold.Symbol, r.Sold.Amount.String(),
			r.Bought.Address, r.Bought.Symbol, r.Bought.Amount.String(),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Close releases the underlying connection.
func (s *SwapArchive) Close() error {
	return s.conn.Close()
}
