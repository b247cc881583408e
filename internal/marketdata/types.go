package marketdata

import "time"

// Candle is one daily OHLCV bar. Series are ordered oldest first.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Quote is the latest snapshot for a symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"change_pct"`
	Volume    int64     `json:"volume"`
	MarketCap int64     `json:"market_cap"`
	AsOf      time.Time `json:"as_of"`
}

// Fundamentals carries the non-technical signal sources for a symbol.
type Fundamentals struct {
	Symbol           string  `json:"symbol"`
	Revenue          int64   `json:"revenue"`
	InsiderNetBuys   int     `json:"insider_net_buys"`
	InstitutionalPct float64 `json:"institutional_pct"`
	PERatio          float64 `json:"pe_ratio"`
	Sector           string  `json:"sector"`
}

// ScoredSymbol is a trending symbol with its sentiment score.
type ScoredSymbol struct {
	Symbol   string  `json:"symbol"`
	Score    float64 `json:"score"` // -1 .. 1
	Mentions int     `json:"mentions"`
}
