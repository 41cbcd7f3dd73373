package marketdepth

// TxnCount is buy/sell transaction counts for one window.
type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// PairTxns is transaction counts per trailing window.
type PairTxns struct {
	M5  TxnCount `json:"m5"`
	M15 TxnCount `json:"m15"`
	M30 TxnCount `json:"m30"`
	H1  TxnCount `json:"h1"`
	H24 TxnCount `json:"h24"`
}

// PairVolume is trading volume in USD per trailing window.
type PairVolume struct {
	M5  float64 `json:"m5"`
	M15 float64 `json:"m15"`
	M30 float64 `json:"m30"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

// PairPriceChange is price change percentage per trailing window.
type PairPriceChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// PairLiquidity is the pair's pooled liquidity.
type PairLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PairLink is one website or social entry from pair metadata.
type PairLink struct {
	Type string `json:"type,omitempty"`
	URL  string `json:"url"`
}

// PairInfo carries optional social/metadata links.
type PairInfo struct {
	Websites []PairLink `json:"websites"`
	Socials  []PairLink `json:"socials"`
}

// Pair is one trading pair's market-depth data.
type Pair struct {
	ChainID     string          `json:"chainId"`
	DexID       string          `json:"dexId"`
	PairAddress string          `json:"pairAddress"`
	PriceUSD    string          `json:"priceUsd"`
	Txns        PairTxns        `json:"txns"`
	Volume      PairVolume      `json:"volume"`
	PriceChange PairPriceChange `json:"priceChange"`
	Liquidity   *PairLiquidity  `json:"liquidity"`
	Info        *PairInfo       `json:"info"`
}

// LiquidityUSD returns the pair's USD liquidity, 0 when absent.
func (p *Pair) LiquidityUSD() float64 {
	if p == nil || p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// SocialLinks returns the total website + social link count, 0 when absent.
func (p *Pair) SocialLinks() int {
	if p == nil || p.Info == nil {
		return 0
	}
	return len(p.Info.Websites) + len(p.Info.Socials)
}

// pairsResponse is the provider's lookup envelope.
type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
}
