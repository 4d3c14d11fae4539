// Package types defines the JSON frames exchanged with the game server.
//
// Every frame is an Envelope:
//
//	{"type": "scan", "data": {"userId": "abc", "targetId": "xyz"}}
package types

import "encoding/json"

// Client -> Server
const (
	TypeJoin  = "join"
	TypeScan  = "scan"
	TypeLeave = "leave"
)

// Server -> Client
const (
	TypeState        = "state"
	TypeNotification = "notification"
)

type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type JoinRequest struct {
	UserID string `json:"userId"`
}

type ScanRequest struct {
	UserID   string `json:"userId"`
	TargetID string `json:"targetId"`
}

type LeaveRequest struct {
	UserID string `json:"userId"`
}

// Notification is ephemeral text aimed at one player. Every client receives
// it; only the one whose identity matches UserID shows it.
type Notification struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}
