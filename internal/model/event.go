package model

// Event types pushed to real-time subscribers.
const (
	EventInterfaceTraffic = "interfaceTraffic"
	EventTrafficSummary   = "trafficSummary"
	EventSystemInfo       = "systemInfo"
	EventStorageInfo      = "storageInfo"
	EventNewAlert         = "newAlert"
	EventConnection       = "connection"
	EventLogs             = "logs"
	EventError            = "error"
)

// Event is the envelope written to every subscriber.
type Event struct {
	Type     string `json:"type"`
	DeviceID *int64 `json:"deviceId,omitempty"`
	Data     any    `json:"data,omitempty"`
	Message  string `json:"message,omitempty"`
	Target   string `json:"target,omitempty"`
}

// ControlMessage is sent by subscribers to request on-demand data.
type ControlMessage struct {
	Type     string `json:"type"`
	Target   string `json:"target"`
	DeviceID int64  `json:"deviceId"`
}
