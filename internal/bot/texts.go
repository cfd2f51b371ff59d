package bot

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/photogeo/core/telegram/keyboard"
	"github.com/m3rciful/photogeo/internal/intake"
)

const locationButton = "📍 Send location"

var texts = map[intake.Reply]string{
	intake.ReplyRequestLocation: "Wow, beautiful photo! Where did you take it?",
	intake.ReplySinglePhotoOnly: "Sorry, I only work with one photo at a time.\nPlease send me just ONE photo!",
	intake.ReplyNotPhoto:        "Sorry, that is not a photo.\nPlease try uploading a photo.",
	intake.ReplyNotLocation:     "Sorry, that is not a location.\nPlease try sending a location.",
	intake.ReplyStartFirst:      "Sorry, you need to start me first.\nChoose \"Start\" in the menu or type /start.",
	intake.ReplyThanks:          "Oh, thank you, I'll remember that!)",
	intake.ReplyAnotherPhoto:    "I'd love to see more photos!)\nIf you like, send another one and I'll take a look.",
	intake.ReplyDownloadFailed:  "Sorry, I couldn't save that photo.\nPlease send it again.",
	intake.ReplyWriteFailed:     "Sorry, I couldn't save that location.\nPlease send it again.",
}

// Render returns the text and optional markup for a reply.
func Render(r intake.SendReply) (string, *tele.ReplyMarkup) {
	switch r.Reply {
	case intake.ReplyGreeting:
		if r.Name == "" {
			return "Good day! Please upload a photo.", nil
		}
		return fmt.Sprintf("Good day, %s! Please upload a photo.", r.Name), nil
	case intake.ReplyRequestLocation:
		return texts[r.Reply], keyboard.LocationRequest(locationButton)
	case intake.ReplyThanks:
		return texts[r.Reply], keyboard.RemoveKeyboard()
	}
	if text, ok := texts[r.Reply]; ok {
		return text, nil
	}
	return string(r.Reply), nil
}
