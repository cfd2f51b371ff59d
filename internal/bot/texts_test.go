package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/photogeo/internal/intake"
)

func TestRenderGreetingUsesName(t *testing.T) {
	text, markup := Render(intake.SendReply{Reply: intake.ReplyGreeting, Name: "Ada"})
	assert.Contains(t, text, "Ada")
	assert.Nil(t, markup)

	text, _ = Render(intake.SendReply{Reply: intake.ReplyGreeting})
	assert.NotContains(t, text, ", !")
}

func TestRenderRequestLocationOffersButton(t *testing.T) {
	_, markup := Render(intake.SendReply{Reply: intake.ReplyRequestLocation})
	require.NotNil(t, markup)
	require.Len(t, markup.ReplyKeyboard, 1)
	require.Len(t, markup.ReplyKeyboard[0], 1)
	assert.True(t, markup.ReplyKeyboard[0][0].Location)
	assert.Equal(t, locationButton, markup.ReplyKeyboard[0][0].Text)
}

func TestRenderThanksRemovesKeyboard(t *testing.T) {
	_, markup := Render(intake.SendReply{Reply: intake.ReplyThanks})
	require.NotNil(t, markup)
	assert.True(t, markup.RemoveKeyboard)
}

func TestRenderCoversEveryReply(t *testing.T) {
	for _, r := range []intake.Reply{
		intake.ReplyGreeting,
		intake.ReplyRequestLocation,
		intake.ReplySinglePhotoOnly,
		intake.ReplyNotPhoto,
		intake.ReplyNotLocation,
		intake.ReplyStartFirst,
		intake.ReplyThanks,
		intake.ReplyAnotherPhoto,
		intake.ReplyDownloadFailed,
		intake.ReplyWriteFailed,
	} {
		text, _ := Render(intake.SendReply{Reply: r})
		assert.NotEqual(t, string(r), text, "reply %s has no text", r)
		assert.NotEmpty(t, text)
	}
}
