package domain

// CapTier buckets tokens by fully diluted valuation (or liquidity when fdv is unknown).
type CapTier string

const (
	TierTop CapTier = "top"
	TierMid CapTier = "mid"
	TierLow CapTier = "low"
)

func (t CapTier) Valid() bool {
	return t == TierTop || t == TierMid || t == TierLow
}

// TierFor classifies a valuation: >1B top, >=10M mid, else low.
func TierFor(value float64) CapTier {
	switch {
	case value > 1_000_000_000:
		return TierTop
	case value >= 10_000_000:
		return TierMid
	default:
		return TierLow
	}
}

type TokenRef struct {
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
	Address string `json:"address"`
}

// TokenPair is one DEX pair returned by token search.
type TokenPair struct {
	BaseToken    TokenRef `json:"baseToken"`
	QuoteSymbol  string   `json:"quoteSymbol"`
	ChainID      string   `json:"chainId"`
	DexID        string   `json:"dexId"`
	PriceUSD     string   `json:"priceUsd"`
	LiquidityUSD float64  `json:"liquidityUsd"`
	Volume24h    float64  `json:"volume24h"`
	FDV          float64  `json:"fdv"`
}

// Valuation is fdv, falling back to liquidity.
func (p TokenPair) Valuation() float64 {
	if p.FDV != 0 {
		return p.FDV
	}
	return p.LiquidityUSD
}

// TokenResult is the flattened shape returned to callers.
type TokenResult struct {
	Name         string  `json:"name"`
	Symbol       string  `json:"symbol"`
	Address      string  `json:"address"`
	Chain        string  `json:"chain"`
	PriceUSD     string  `json:"priceUsd,omitempty"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	Volume24h    float64 `json:"volume24h"`
	FDV          float64 `json:"fdv"`
	Dex          string  `json:"dex"`
	Tier         CapTier `json:"tier"`
}
