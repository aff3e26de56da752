// Package api provides the HTTP handlers of the game API server.
package api

// APIVersion represents the current API version supported by this server.
// Clients read it from /status to detect which methods are available.
const (
	// APIVersion1 is the first dispatch protocol: POST /api/<name>.json
	// answered with a response or error envelope.
	APIVersion1 = 1

	// CurrentAPIVersion is the highest API version supported by this server.
	CurrentAPIVersion = APIVersion1
)

// ServiceName is reported by the status endpoints.
const ServiceName = "gameapi"

// StatusResponse is the response from the /status endpoint.
type StatusResponse struct {
	Status     string   `json:"status"`
	Service    string   `json:"service"`
	State      string   `json:"state"`
	APIVersion int      `json:"api_version"`
	Handlers   []string `json:"handlers,omitempty"`
}
