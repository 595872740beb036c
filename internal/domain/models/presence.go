package models

import "github.com/ridecore/dispatch/internal/domain/types"

// PresenceBatch is the body of POST /webhooks/ably/presence.
type PresenceBatch struct {
	Items []PresenceItem `json:"items"`
}

// PresenceItem carries one or more presence messages for a channel.
// Only items with Source == "channel.presence" are considered; others
// are skipped silently.
type PresenceItem struct {
	Source    string              `json:"source"`
	Name      string              `json:"name,omitempty"`
	Timestamp *int64              `json:"timestamp,omitempty"`
	Data      PresenceItemData    `json:"data"`
}

type PresenceItemData struct {
	ChannelID string            `json:"channelId,omitempty"`
	Presence  []PresenceMessage `json:"presence"`
}

// PresenceMessage is a single membership transition. Action follows the
// broker's numeric convention; only Enter(2)/Leave(3) are acted on.
type PresenceMessage struct {
	ClientID  string               `json:"clientId"`
	Action    types.PresenceAction `json:"action"`
	Timestamp *int64               `json:"timestamp,omitempty"`
	Data      any                  `json:"data,omitempty"`
}

const sourceChannelPresence = "channel.presence"

// IsChannelPresence reports whether this item should be processed.
func (i PresenceItem) IsChannelPresence() bool { return i.Source == sourceChannelPresence }
