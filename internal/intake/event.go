package intake

import "time"

// Kind classifies an inbound message by content.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindLocation Kind = "location"
	KindCommand  Kind = "command"
	KindOther    Kind = "other"
)

// Coords is a point reported by the user.
type Coords struct {
	Latitude  float64
	Longitude float64
}

// Event is the transport-neutral view of one inbound message.
type Event struct {
	UpdateID    int
	UserID      int64
	ChatID      int64
	DisplayName string
	Kind        Kind
	// Command holds the command name including the leading slash, e.g. "/start".
	Command string
	// GroupID is the media group id; empty for solitary messages.
	GroupID string
	// AssetRef is the platform file id of the photo.
	AssetRef  string
	Location  *Coords
	Timestamp time.Time
}

// Input is what the state machine consumes: the representative event plus the
// bundle it stands for. Bundle always contains Event itself.
type Input struct {
	Event  Event
	Bundle []Event
}

// Solitary wraps a single event as an Input with a bundle of one.
func Solitary(ev Event) Input {
	return Input{Event: ev, Bundle: []Event{ev}}
}

// Grouped reports whether the input came from a media group.
func (in Input) Grouped() bool {
	return in.Event.GroupID != "" || len(in.Bundle) > 1
}
