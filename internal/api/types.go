package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ID is an opaque identifier that the API may encode as a JSON number or
// string. Either form decodes to the same text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Stats is the aggregate V2X platform status shown on the dashboard.
type Stats struct {
	ConnectedVehicles int    `json:"connectedVehicles"`
	ActiveConnections int    `json:"activeConnections"`
	MessagesProcessed int    `json:"messagesProcessed"`
	SystemUptime      string `json:"systemUptime"`
}

// Vehicle is one connected vehicle as reported by the platform.
type Vehicle struct {
	ID       ID     `json:"id"`
	Model    string `json:"model"`
	Status   string `json:"status"`
	Location string `json:"location"`
}

// Connected reports whether the platform lists the vehicle as connected.
func (v Vehicle) Connected() bool {
	return v.Status == "connected"
}

// Dashboard combines the statistics and vehicle list endpoints.
type Dashboard struct {
	Stats    Stats     `json:"stats"`
	Vehicles []Vehicle `json:"vehicles"`
}
