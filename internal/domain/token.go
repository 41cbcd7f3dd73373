package domain

// SizeClass buckets a token by total-value-locked tertile rank within the
// current universe.
type SizeClass string

const (
	SizeLarge  SizeClass = "large"
	SizeMedium SizeClass = "medium"
	SizeSmall  SizeClass = "small"
)

// TokenSnapshot is one token's entry in the hourly universe snapshot.
// Immutable once produced for a given hour bucket; a new fetch produces a
// new snapshot set.
type TokenSnapshot struct {
	Address   string    `json:"address"` // contract address
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	PriceUSD  float64   `json:"priceUSD"`
	TVLUSD    float64   `json:"tvlUSD"`
	VolumeUSD float64   `json:"volumeUSD"` // period volume
	Size      SizeClass `json:"size"`
	HeatRatio float64   `json:"heatRatio"` // volume / TVL, 0 when TVL is 0
	CreatedAt int64     `json:"createdAt"` // earliest pool creation, unix secs, 0 if unknown
}
