// Package realtime is the WebSocket fan-out for order events.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	AdminRoom      = "admin-room"
	userRoomPrefix = "user-"

	EventOrderCreated = "orderCreated"
)

// UserRoom names the per-user room a buyer joins.
func UserRoom(id uuid.UUID) string {
	return userRoomPrefix + id.String()
}

// Event is broadcast to every socket; Rooms tags it for room-filtered clients.
type Event struct {
	Name  string          `json:"event"`
	Rooms []string        `json:"rooms,omitempty"`
	Data  json.RawMessage `json:"data"`
}

func NewEvent(name string, data any, rooms ...string) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return Event{Name: name, Rooms: rooms, Data: raw}, nil
}

// envelope is the frame written to sockets.
type envelope struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data"`
}

// clientMessage is what browsers send to join rooms.
type clientMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

const (
	msgJoinAdminRoom = "join-admin-room"
	msgJoinUserRoom  = "join-user-room"
)
