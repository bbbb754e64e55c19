package gallery

import (
	"fmt"

	"github.com/dmitrijs2005/atelier/internal/platform"
)

// BuildEmbed renders the curated summary of a message: the first attachment
// as image, the author, the original timestamp and a jump link back to the
// source. A message without attachments renders without an image.
func BuildEmbed(msg *platform.Message) *platform.Embed {
	e := &platform.Embed{
		Description:   fmt.Sprintf("**Original message:** [jump](%s)", msg.JumpLink()),
		AuthorName:    "By " + msg.Author.DisplayName,
		AuthorIconURL: msg.Author.AvatarURL,
		Footer:        "Posted " + msg.CreatedAt.Format("2006-01-02 15:04"),
	}
	if len(msg.Attachments) > 0 {
		e.ImageURL = msg.Attachments[0].URL
	}
	return e
}
