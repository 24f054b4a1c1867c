package models

import (
	"time"
)

// Bar represents one OHLCV sample keyed by its monotonic chart index.
// Index is strictly increasing and gap-free within one series; the
// geometry layer validates contiguity on every append.
type Bar struct {
	Index     int       `json:"index"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	WAP       float64   `json:"wap,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// BarMessage is a feed update for one symbol's series. Final marks a
// closed bar (append); otherwise the message mutates the forming bar.
type BarMessage struct {
	Symbol string `json:"symbol"`
	Bar    Bar    `json:"bar"`
	Final  bool   `json:"final"`
}
