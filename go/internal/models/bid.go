package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidRecord is one accepted bid on the open item
type BidRecord struct {
	TeamID    string          `json:"team_id"`
	Amount    decimal.Decimal `json:"amount"`
	Synthetic bool            `json:"synthetic"`
	PlacedAt  time.Time       `json:"placed_at"`
}
