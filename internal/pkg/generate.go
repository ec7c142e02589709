package pkg

import "github.com/google/uuid"

// GenerateRoomID - opaque room identifier, immutable once created.
func GenerateRoomID() string {
	return uuid.NewString()
}

// GenerateSessionID - identifier for anonymous websocket sessions.
func GenerateSessionID() string {
	return uuid.NewString()
}
