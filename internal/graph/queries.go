package graph

import (
	"context"
	"fmt"
	"strconv"
)

// TokenHourStat is one row of the hourly token statistics listing.
// Numeric fields arrive as strings from the index and are parsed here.
type TokenHourStat struct {
	Address   string
	Name      string
	Symbol    string
	PriceUSD  float64
	TVLUSD    float64
	VolumeUSD float64
	CreatedAt int64 // earliest pool creation time, 0 if unknown
}

// PoolListing is one row of the pool listing.
type PoolListing struct {
	Address      string
	LiquidityUSD float64
	VolumeUSD    float64
	Token0       TokenRef
	Token1       TokenRef
	CreatedAt    int64
}

// TokenRef identifies a token inside a pool listing or swap row.
type TokenRef struct {
	Address string
	Symbol  string
}

// SwapRow is one raw swap row from the index, amounts as signed decimal
// strings.
type SwapRow struct {
	Timestamp int64
	Pool      string
	Sender    string
	Recipient string
	Amount0   string
	Amount1   string
}

const tokenHourStatsQuery = `
query TokenHourStats($period: Int!, $minVolume: String!, $first: Int!, $skip: Int!) {
  tokenHourStats(
    where: { periodStartUnix: $period, volumeUSD_gt: $minVolume }
    orderBy: volumeUSD
    orderDirection: desc
    first: $first
    skip: $skip
  ) {
    token { id name symbol }
    priceUSD
    totalValueLockedUSD
    volumeUSD
    earliestPoolCreatedAt
  }
}`

type tokenHourStatsData struct {
	TokenHourStats []struct {
		Token struct {
			ID     string `json:"id"`
			Name   string `json:"name"`
			Symbol string `json:"symbol"`
		} `json:"token"`
		PriceUSD              string `json:"priceUSD"`
		TotalValueLockedUSD   string `json:"totalValueLockedUSD"`
		VolumeUSD             string `json:"volumeUSD"`
		EarliestPoolCreatedAt string `json:"earliestPoolCreatedAt"`
	} `json:"tokenHourStats"`
}

// TokenHourStats fetches one page of hourly token statistics for the given
// period bucket, ordered descending by volume.
func (c *Client) TokenHourStats(ctx context.Context, period int64, minVolume float64, first, skip int) ([]TokenHourStat, error) {
	var data tokenHourStatsData
	vars := map[string]any{
		"period":    period,
		"minVolume": formatUSD(minVolume),
		"first":     first,
		"skip":      skip,
	}
	if err := c.query(ctx, tokenHourStatsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("token hour stats: %w", err)
	}

	stats := make([]TokenHourStat, 0, len(data.TokenHourStats))
	for _, row := range data.TokenHourStats {
		stats = append(stats, TokenHourStat{
			Address:   row.Token.ID,
			Name:      row.Token.Name,
			Symbol:    row.Token.Symbol,
			PriceUSD:  parseFloat(row.PriceUSD),
			TVLUSD:    parseFloat(row.TotalValueLockedUSD),
			VolumeUSD: parseFloat(row.VolumeUSD),
			CreatedAt: parseInt(row.EarliestPoolCreatedAt),
		})
	}
	return stats, nil
}

const poolsQuery = `
query Pools($minVolume: String!, $first: Int!, $skip: Int!) {
  pools(
    where: { volumeUSD_gt: $minVolume }
    orderBy: volumeUSD
    orderDirection: desc
    first: $first
    skip: $skip
  ) {
    id
    totalValueLockedUSD
    volumeUSD
    createdAtTimestamp
    token0 { id symbol }
    token1 { id symbol }
  }
}`

type poolsData struct {
	Pools []struct {
		ID                  string `json:"id"`
		TotalValueLockedUSD string `json:"totalValueLockedUSD"`
		VolumeUSD           string `json:"volumeUSD"`
		CreatedAtTimestamp  string `json:"createdAtTimestamp"`
		Token0              struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"token0"`
		Token1 struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
		} `json:"token1"`
	} `json:"pools"`
}

// Pools fetches one page of pool listings above the volume threshold,
// ordered descending by volume.
func (c *Client) Pools(ctx context.Context, minVolume float64, first, skip int) ([]PoolListing, error) {
	var data poolsData
	vars := map[string]any{
		"minVolume": formatUSD(minVolume),
		"first":     first,
		"skip":      skip,
	}
	if err := c.query(ctx, poolsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("pools: %w", err)
	}

	pools := make([]PoolListing, 0, len(data.Pools))
	for _, row := range data.Pools {
		pools = append(pools, PoolListing{
			Address:      row.ID,
			LiquidityUSD: parseFloat(row.TotalValueLockedUSD),
			VolumeUSD:    parseFloat(row.VolumeUSD),
			Token0:       TokenRef{Address: row.Token0.ID, Symbol: row.Token0.Symbol},
			Token1:       TokenRef{Address: row.Token1.ID, Symbol: row.Token1.Symbol},
			CreatedAt:    parseInt(row.CreatedAtTimestamp),
		})
	}
	return pools, nil
}

const swapsQuery = `
query Swaps($since: Int!, $first: Int!, $skip: Int!) {
  swaps(
    where: { timestamp_gte: $since }
    orderBy: timestamp
    orderDirection: desc
    first: $first
    skip: $skip
  ) {
    timestamp
    sender
    recipient
    amount0
    amount1
    pool { id }
  }
}`

type swapsData struct {
	Swaps []struct {
		Timestamp string `json:"timestamp"`
		Sender    string `json:"sender"`
		Recipient string `json:"recipient"`
		Amount0   string `json:"amount0"`
		Amount1   string `json:"amount1"`
		Pool      struct {
			ID string `json:"id"`
		} `json:"pool"`
	} `json:"swaps"`
}

// Swaps fetches one page of raw swaps at or after the given timestamp,
// ordered descending by timestamp. Used for backfill after a restart gap.
func (c *Client) Swaps(ctx context.Context, since int64, first, skip int) ([]SwapRow, error) {
	var data swapsData
	vars := map[string]any{
		"since": since,
		"first": first,
		"skip":  skip,
	}
	if err := c.query(ctx, swapsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("swaps: %w", err)
	}

	swaps := make([]SwapRow, 0, len(data.Swaps))
	for _, row := range data.Swaps {
		swaps = append(swaps, SwapRow{
			Timestamp: parseInt(row.Timestamp),
			Pool:      row.Pool.ID,
			Sender:    row.Sender,
			Recipient: row.Recipient,
			Amount0:   row.Amount0,
			Amount1:   row.Amount1,
		})
	}
	return swaps, nil
}

// parseFloat parses an index numeric string, returning 0 on malformed input.
// The index occasionally emits empty strings for brand-new rows.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseInt parses an index integer string, returning 0 on malformed input.
func parseInt(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// formatUSD renders a float threshold the way the index expects its
// BigDecimal string arguments.
func formatUSD(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
