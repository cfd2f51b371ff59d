package intake

import "strings"

// DefaultBeginCommands start or restart the conversation.
var DefaultBeginCommands = []string{"/start", "/help"}

// Result is the outcome of one step: the session to store, the side effects to
// perform in order, and the recovered rejection if the input was refused.
type Result struct {
	Session    Session
	Directives []Directive
	Rejection  error
}

// Machine is the conversation state machine. It is a pure function of
// (session, input) and holds no per-user data.
type Machine struct {
	begin map[string]struct{}
}

// NewMachine builds a Machine that treats the given commands as "begin".
// With no commands, DefaultBeginCommands are used.
func NewMachine(beginCommands ...string) *Machine {
	if len(beginCommands) == 0 {
		beginCommands = DefaultBeginCommands
	}
	m := &Machine{begin: make(map[string]struct{}, len(beginCommands))}
	for _, c := range beginCommands {
		c = normalizeCommand(c)
		if c != "" {
			m.begin[c] = struct{}{}
		}
	}
	return m
}

// IsBegin reports whether ev is a begin command.
func (m *Machine) IsBegin(ev Event) bool {
	if ev.Kind != KindCommand {
		return false
	}
	_, ok := m.begin[normalizeCommand(ev.Command)]
	return ok
}

// Step applies the acceptance policy of the session's state to the input.
func (m *Machine) Step(s Session, in Input) Result {
	ev := in.Event
	if m.IsBegin(ev) {
		return Result{
			Session:    s.Advance(StateAwaitingPhoto, nil),
			Directives: []Directive{reply(ev, ReplyGreeting)},
		}
	}

	switch s.State {
	case StateAwaitingPhoto:
		return m.awaitingPhoto(s, in)
	case StateAwaitingLocation:
		return m.awaitingLocation(s, in)
	default:
		return reject(s, ev, ReplyStartFirst, ErrNoActiveSession)
	}
}

func (m *Machine) awaitingPhoto(s Session, in Input) Result {
	ev := in.Event
	switch {
	case ev.Kind != KindPhoto:
		return reject(s, ev, ReplyNotPhoto, ErrInvalidInputKind)
	case in.Grouped():
		return reject(s, ev, ReplySinglePhotoOnly, ErrUnexpectedGroupedInput)
	}
	return Result{
		Session: s.Advance(StateAwaitingLocation, &PhotoRef{AssetRef: ev.AssetRef}),
		Directives: []Directive{
			ScheduleDownload{UserID: ev.UserID, AssetRef: ev.AssetRef},
			reply(ev, ReplyRequestLocation),
		},
	}
}

func (m *Machine) awaitingLocation(s Session, in Input) Result {
	ev := in.Event
	if ev.Kind != KindLocation || ev.Location == nil {
		return reject(s, ev, ReplyNotLocation, ErrInvalidInputKind)
	}
	rec := Record{
		UserID:      ev.UserID,
		DisplayName: ev.DisplayName,
		Latitude:    ev.Location.Latitude,
		Longitude:   ev.Location.Longitude,
		Timestamp:   ev.Timestamp,
	}
	if s.PendingPhoto != nil {
		rec.LocalPhotoRef = s.PendingPhoto.LocalRef
	}
	// The pairing is complete: reset, then re-enter the photo step right away.
	return Result{
		Session: s.Reset().Advance(StateAwaitingPhoto, nil),
		Directives: []Directive{
			ScheduleRecordWrite{Record: rec},
			reply(ev, ReplyThanks),
			reply(ev, ReplyAnotherPhoto),
		},
	}
}

func reject(s Session, ev Event, r Reply, reason error) Result {
	return Result{
		Session:    s,
		Directives: []Directive{reply(ev, r)},
		Rejection:  reason,
	}
}

func reply(ev Event, r Reply) SendReply {
	chatID := ev.ChatID
	if chatID == 0 {
		chatID = ev.UserID
	}
	return SendReply{ChatID: chatID, Reply: r, Name: ev.DisplayName}
}

// normalizeCommand strips a bot mention ("/start@my_bot") and lowercases the command.
func normalizeCommand(c string) string {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return ""
	}
	if i := strings.IndexByte(c, '@'); i > 0 {
		c = c[:i]
	}
	if !strings.HasPrefix(c, "/") {
		c = "/" + c
	}
	return c
}
