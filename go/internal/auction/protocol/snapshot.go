package protocol

import (
	"time"

	"github.com/mcdev12/auctionroom/go/internal/models"
	"github.com/shopspring/decimal"
)

// ParticipantView is what other participants see of a session
type ParticipantView struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	TeamID      string `json:"team_id,omitempty"`
	IsHost      bool   `json:"is_host"`
	Connected   bool   `json:"connected"`
}

// RoundInfo locates the open item within the queue
type RoundInfo struct {
	Set         string `json:"set"`
	ItemNumber  int    `json:"item_number"`
	TotalItems  int    `json:"total_items"`
	ItemsSold   int    `json:"items_sold"`
	ItemsUnsold int    `json:"items_unsold"`
}

// AuctionState is the per-tick view of the auction
type AuctionState struct {
	Phase        models.Phase       `json:"phase"`
	Teams        []models.Team      `json:"teams"`
	OpenItem     *models.Item       `json:"open_item,omitempty"`
	CurrentPrice decimal.Decimal    `json:"current_price"`
	LeaderID     string             `json:"leader_id,omitempty"`
	BidLog       []models.BidRecord `json:"bid_log"`
	Countdown    int                `json:"countdown"`
	Paused       bool               `json:"paused"`
	PausedBy     string             `json:"paused_by,omitempty"`
	Round        RoundInfo          `json:"round"`
	Frozen       bool               `json:"frozen"`
}

// RoomSnapshot is the full room state sent on join, reconnect and room
// updates, and handed to the persistence layer.
type RoomSnapshot struct {
	Code            string            `json:"code"`
	CreatedAt       time.Time         `json:"created_at"`
	Phase           models.Phase      `json:"phase"`
	MinParticipants int               `json:"min_participants"`
	Participants    []ParticipantView `json:"participants"`
	Items           []models.Item     `json:"items"`
	State           AuctionState      `json:"state"`
	TakenAt         time.Time         `json:"taken_at"`
}

// RoomSummary is one entry of a room listing
type RoomSummary struct {
	Code         string       `json:"code"`
	Phase        models.Phase `json:"phase"`
	HostName     string       `json:"host_name"`
	Participants int          `json:"participants"`
	OpenSlots    int          `json:"open_slots"`
	CreatedAt    time.Time    `json:"created_at"`
}
