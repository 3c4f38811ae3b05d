package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage is the base message exchanged over a job progress socket.
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage pushes a job snapshot to subscribers.
type WSProgressMessage struct {
	Type     string      `json:"type"`
	JobID    string      `json:"jobId"`
	Progress JobProgress `json:"progress"`
}
