package models

// EventType identifies a scan stream event
type EventType string

const (
	EventProgress         EventType = "progress"
	EventVerdict          EventType = "verdict"
	EventEnumerationError EventType = "enumeration_error"
	EventCompleted        EventType = "completed"
)

// Event is one element of the scan result stream.
// Exactly one of the payload fields is set, according to Type.
type Event struct {
	Type             EventType
	Progress         int // 0-100
	Done             int // files verdicted so far
	Total            int // files enumerated
	Verdict          *Verdict
	EnumerationError *EnumerationError
	Results          *ScanResults
}
