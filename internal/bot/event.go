// Package bot adapts Telegram updates to the intake pipeline and carries out
// its replies and downloads with telebot.
package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/photogeo/internal/intake"
)

// EventFrom maps the message in c to an intake event. It reports false for
// updates without a message or sender.
func EventFrom(c tele.Context) (intake.Event, bool) {
	msg := c.Message()
	if msg == nil || msg.Sender == nil {
		return intake.Event{}, false
	}
	ev := intake.Event{
		UpdateID:    c.Update().ID,
		UserID:      msg.Sender.ID,
		DisplayName: DisplayName(msg.Sender),
		GroupID:     msg.AlbumID,
		Timestamp:   msg.Time(),
		Kind:        intake.KindOther,
	}
	if msg.Chat != nil {
		ev.ChatID = msg.Chat.ID
	}

	switch {
	case msg.Photo != nil:
		ev.Kind = intake.KindPhoto
		ev.AssetRef = msg.Photo.FileID
	case msg.Venue != nil:
		// Venues carry a location too but are not a shared position.
	case msg.Location != nil:
		ev.Kind = intake.KindLocation
		ev.Location = &intake.Coords{
			Latitude:  float64(msg.Location.Lat),
			Longitude: float64(msg.Location.Lng),
		}
	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = intake.KindCommand
		ev.Command = strings.Fields(msg.Text)[0]
	}
	return ev, true
}

// DisplayName joins first and last name, falling back to the username.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return name
}
