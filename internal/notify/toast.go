package notify

import (
	"net/url"

	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/toast"
)

// PreviewLength is the number of characters of message content kept in a
// toast body before the ellipsis.
const PreviewLength = 50

// Title returns "New message from <name>" using the sender's display name.
func Title(sender *model.SenderProfile) string {
	return "New message from " + sender.DisplayName()
}

// Preview truncates content to PreviewLength characters and appends "..."
// when anything was cut. Counting is by rune.
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}

// BuildNotification turns an incoming message and its sender into toast
// content. sender may be nil.
func BuildNotification(ev *model.NotificationEvent, sender *model.SenderProfile) toast.Notification {
	return toast.Notification{
		Title:   Title(sender),
		Message: Preview(ev.Content),
		Link:    "/dashboard/messages?with=" + url.QueryEscape(ev.SenderID),
	}
}
