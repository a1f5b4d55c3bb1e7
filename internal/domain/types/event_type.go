package types

// EventType - типы сообщений между сервером и клиентом по вебсокету
type EventType string

func (e EventType) String() string {
	return string(e)
}

// server → client
const (
	EventRideStatusChanged EventType = "ride-status-changed"
	EventDriverLocation    EventType = "driver-location"
	EventNewRideAvailable  EventType = "new-ride-available"
	EventSOSAcknowledged   EventType = "sos-acknowledged"
	EventError             EventType = "error"
)

// client → server
const (
	EventJoinRide          EventType = "join-ride"
	EventJoinDriverChannel EventType = "join-driver-channel"
	EventReportLocation    EventType = "report-location"
	EventTriggerSOS        EventType = "trigger-sos"
)
