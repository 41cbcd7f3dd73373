package domain

// SwapLeg is one side of a swap: a token and a non-negative amount.
type SwapLeg struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Amount  Amount `json:"amount"`
}

// SwapRecord is a decoded, direction-normalized swap event. Derived from a
// raw signed two-leg amount pair by sign inspection: the negative leg is the
// sold token (magnitude negated to a positive amount), the other leg bought.
// Append-only per pool; retained in a rolling window and pruned by age.
type SwapRecord struct {
	Timestamp int64   `json:"timestamp"` // unix secs
	Pool      string  `json:"pool"`
	Sender    string  `json:"sender"`
	Recipient string  `json:"recipient"`
	Sold      SwapLeg `json:"sold"`
	Bought    SwapLeg `json:"bought"`
}

// TokenInfo is a per-token projection of the retained swap set counting all
// senders: buy/sell counts plus the signed net amount (bought - sold).
type TokenInfo struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
	Buys    int    `json:"buys"`
	Sells   int    `json:"sells"`
	Net     Amount `json:"net"`
}

// TokenSwapSummary is the per-token running totals over the retained window.
// Derived by folding retained swap records; the records are ground truth.
type TokenSwapSummary struct {
	Address     string `json:"address"`
	Symbol      string `json:"symbol"`
	TotalSold   Amount `json:"totalSold"`
	TotalBought Amount `json:"totalBought"`
	SwapCount   int    `json:"swapCount"`
	Net         Amount `json:"net"` // bought - sold
}

// TradeAction is the direction of one good-trader activity entry.
type TradeAction string

const (
	ActionBuy  TradeAction = "BUY"
	ActionSell TradeAction = "SELL"
)

// GoodTraderSwap is one activity entry for an allow-listed trader. Every
// matched swap emits two entries: a SELL for the sold leg and a BUY for the
// bought leg of the same event.
type GoodTraderSwap struct {
	Trader    string      `json:"trader"`
	Timestamp int64       `json:"timestamp"`
	Action    TradeAction `json:"action"`
	Token     SwapLeg     `json:"token"`
}
