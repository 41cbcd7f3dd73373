// Package marketdepth looks up per-token trading-pair data from an external
// market-depth provider. Absence of data (HTTP failure, no matching pair)
// is "no data", never an error: scoring degrades to neutral values.
package marketdepth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"dexsignal/internal/logging"
)

// DefaultTimeout bounds one provider lookup.
const DefaultTimeout = 10 * time.Second

// DefaultConcurrency bounds parallel lookups in FetchMany.
const DefaultConcurrency = 8

// Client is a read-only market-depth lookup by token contract address.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a market-depth client.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: DefaultTimeout},
		log:     logging.Component(log, "marketdepth"),
	}
}

// Lookup returns the deepest trading pair for the token, or nil when the
// provider has no data. Errors are logged and reported as nil data.
func (c *Client) Lookup(ctx context.Context, tokenAddr string) (*Pair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/tokens/%s", c.baseURL, tokenAddr), nil)
	if err != nil {
		return nil, nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("token", tokenAddr).Msg("market-depth lookup failed")
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.log.Debug().Int("status", resp.StatusCode).Str("token", tokenAddr).Msg("market-depth non-success status")
		return nil, nil
	}

	var payload pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.log.Debug().Err(err).Str("token", tokenAddr).Msg("market-depth payload malformed")
		return nil, nil
	}
	if len(payload.Pairs) == 0 {
		return nil, nil
	}

	// Several pairs may trade the token; the deepest one represents it.
	best := &payload.Pairs[0]
	for i := 1; i < len(payload.Pairs); i++ {
		if payload.Pairs[i].LiquidityUSD() > best.LiquidityUSD() {
			best = &payload.Pairs[i]
		}
	}
	return best, nil
}

// FetchMany looks up market depth for the token set concurrently. Each call
// is independent and side-effect-free, so lookups run in parallel bounded by
// DefaultConcurrency. Tokens with no data are simply absent from the result.
func (c *Client) FetchMany(ctx context.Context, tokenAddrs []string) map[string]*Pair {
	out := make(map[string]*Pair, len(tokenAddrs))

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, DefaultConcurrency)

	for _, addr := range tokenAddrs {
		wg.Add(1)
		sem <- struct{}{}
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			pair, _ := c.Lookup(ctx, addr)
			if pair == nil {
				return
			}
			mu.Lock()
			out[addr] = pair
			mu.Unlock()
		}(addr)
	}

	wg.Wait()
	return out
}
