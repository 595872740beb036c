package models

import "time"

// Location is a bare coordinate pair, optionally with a human address.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// DriverLocation is the driver's last known fix plus the motion fields
// the mobile client reports alongside it. Heading/speed/accuracy are
// optional and carried as pointers so "unknown" survives round-trips.
type DriverLocation struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Heading   *float64   `json:"heading,omitempty"`
	Speed     *float64   `json:"speed,omitempty"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
