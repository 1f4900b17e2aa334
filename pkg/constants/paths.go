package constants

// Route paths shared between the router and the client library.
const (
	PathHealth     = "/health"
	PathReady      = "/ready"
	PathWebSocket  = "/ws"
	PathSSEConnect = "/sse/connect"
	PathProtocol   = "/api/sync/protocol"
)
