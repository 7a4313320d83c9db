package serialmux

import "strings"

const (
	EventTypeSample  = "sample"
	EventTypeStatus  = "status"
	EventTypeUnknown = "unknown"
)

// ClassifyPayload inspects a payload string and returns a simple event type
// token. Sample lines are bare comma-separated numerics; JSON objects are
// status/config responses from the device firmware.
func ClassifyPayload(payload string) string {
	trimmed := strings.TrimSpace(payload)
	if strings.HasPrefix(trimmed, "{") {
		return EventTypeStatus
	}
	if strings.Contains(trimmed, ",") {
		return EventTypeSample
	}
	return EventTypeUnknown
}
