package models

// TokenPairsResponse is the body of GET /latest/dex/tokens/{token}.
type TokenPairsResponse struct {
	SchemaVersion string      `json:"schemaVersion"`
	Pairs         []TokenPair `json:"pairs"`
}

type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// TokenPair is one trading pair. PriceUSD is a decimal string and may be empty.
type TokenPair struct {
	ChainID     string    `json:"chainId"`
	DexID       string    `json:"dexId"`
	PairAddress string    `json:"pairAddress"`
	BaseToken   PairToken `json:"baseToken"`
	QuoteToken  PairToken `json:"quoteToken"`
	PriceNative string    `json:"priceNative"`
	PriceUSD    string    `json:"priceUsd"`
}
