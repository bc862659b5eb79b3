// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the spectator feed.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // client did not ask for the "spectate" subprotocol
	InvalidGameIDError  websocket.StatusCode = 3003 // game id in the URL is malformed or unknown
	SlowSpectatorError  websocket.StatusCode = 3004 // spectator fell too far behind the event stream
)
