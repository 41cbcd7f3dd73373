package domain

// PoolToken identifies one side of a liquidity pool.
type PoolToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

// Pool is an on-chain liquidity venue trading exactly two tokens.
// Owned by the pool directory; the whole set is replaced on each refresh.
type Pool struct {
	Address      string    `json:"address"`
	LiquidityUSD float64   `json:"liquidityUSD"`
	VolumeUSD    float64   `json:"volumeUSD"`
	Token0       PoolToken `json:"token0"`
	Token1       PoolToken `json:"token1"`
	CreatedAt    int64     `json:"createdAt"` // unix secs, 0 if unknown
}

// TokenPair is the directory's derived pool-address → constituent-tokens
// index entry, used to resolve raw swap events.
type TokenPair struct {
	Token0 PoolToken `json:"token0"`
	Token1 PoolToken `json:"token1"`
}
