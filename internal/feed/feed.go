package feed

import "context"

// Client defines the live swap-event feed interface.
type Client interface {
	// SubscribeSwaps subscribes to swap events for the filtered pool set.
	SubscribeSwaps(ctx context.Context, filter SwapsFilter) (*Subscription, error)

	// Unsubscribe tears down one subscription and signals its Done channel.
	Unsubscribe(ctx context.Context, sub *Subscription) error

	// Close closes the feed connection and all subscriptions.
	Close() error
}

// SwapsFilter scopes a subscription to a list of pool addresses.
type SwapsFilter struct {
	Pools []string
}

// SwapEntry is one decoded log entry of the fixed swap event shape. The two
// leg amounts are signed decimal strings; sign inspection downstream decides
// sold vs bought.
type SwapEntry struct {
	Pool      string `json:"pool"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount0   string `json:"amount0"`
	Amount1   string `json:"amount1"`
	SqrtPrice string `json:"sqrtPrice"`
	Liquidity string `json:"liquidity"`
	Tick      int32  `json:"tick"`
	Timestamp int64  `json:"timestamp"`
}

// Notification is one feed message: a batch of decoded entries.
type Notification struct {
	Entries []SwapEntry
}

// Subscription is a live handle to a swap-event stream. Consumers select on
// C and Done together: Done closing marks teardown, after which anything
// still buffered on C may be drained. The feed never closes C itself, so a
// delivery racing an unsubscribe can never send on a closed channel.
type Subscription struct {
	id     int64
	C      <-chan Notification
	done   chan struct{}
	filter SwapsFilter
}

// ID returns the server-assigned subscription ID.
func (s *Subscription) ID() int64 { return s.id }

// Done is closed when the subscription is torn down by Unsubscribe or by
// closing the client.
func (s *Subscription) Done() <-chan struct{} { return s.done }
