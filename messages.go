package client

import "doomlink/client/internal/apnet"

// Color tags understood by the host game's text renderer. ~2 is the normal
// text color, ~3 locations, ~4 players, ~9 items.
const (
	colorText     = "~2"
	colorLocation = "~3"
	colorPlayer   = "~4"
	colorItem     = "~9"
)

// formatMessage turns a chat line into display text with color tags.
func formatMessage(msg apnet.Message) string {
	switch msg.Kind {
	case apnet.MessageItemSend:
		return colorItem + msg.Item + colorText + " was sent to " + colorPlayer + msg.RecvPlayer
	case apnet.MessageItemReceive:
		return colorText + "Received " + colorItem + msg.Item + colorText + " from " + colorPlayer + msg.SendPlayer
	case apnet.MessageHint:
		suffix := " (Unchecked)"
		if msg.Checked {
			suffix = " (Checked)"
		}
		return colorItem + msg.Item +
			colorText + " from " + colorPlayer + msg.SendPlayer +
			colorText + " to " + colorPlayer + msg.RecvPlayer +
			colorText + " at " + colorLocation + msg.Location + suffix
	default:
		return colorText + msg.Text
	}
}
