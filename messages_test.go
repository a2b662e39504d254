package client

import (
	"testing"

	"doomlink/client/internal/apnet"
)

func TestFormatMessage(t *testing.T) {
	cases := []struct {
		name string
		msg  apnet.Message
		want string
	}{
		{
			name: "plain",
			msg:  apnet.Message{Kind: apnet.MessagePlain, Text: "Friend: hello"},
			want: "~2Friend: hello",
		},
		{
			name: "item send",
			msg: apnet.Message{
				Kind:       apnet.MessageItemSend,
				Item:       "Blue keycard",
				RecvPlayer: "Friend",
			},
			want: "~9Blue keycard~2 was sent to ~4Friend",
		},
		{
			name: "item receive",
			msg: apnet.Message{
				Kind:       apnet.MessageItemReceive,
				Item:       "Shotgun",
				SendPlayer: "Friend",
			},
			want: "~2Received ~9Shotgun~2 from ~4Friend",
		},
		{
			name: "hint unchecked",
			msg: apnet.Message{
				Kind:       apnet.MessageHint,
				Item:       "Rocket launcher",
				SendPlayer: "Friend",
				RecvPlayer: "Player1",
				Location:   "Spider lair",
			},
			want: "~9Rocket launcher~2 from ~4Friend~2 to ~4Player1~2 at ~3Spider lair (Unchecked)",
		},
		{
			name: "hint checked",
			msg: apnet.Message{
				Kind:       apnet.MessageHint,
				Item:       "Rocket launcher",
				SendPlayer: "Friend",
				RecvPlayer: "Player1",
				Location:   "Spider lair",
				Checked:    true,
			},
			want: "~9Rocket launcher~2 from ~4Friend~2 to ~4Player1~2 at ~3Spider lair (Checked)",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatMessage(tc.msg); got != tc.want {
				t.Fatalf("formatMessage = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessagesCacheUntilInitialized(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.Message(apnet.Message{Kind: apnet.MessagePlain, Text: "early"})
	if len(env.messages) != 0 {
		t.Fatalf("message delivered before the session initialized")
	}

	s.initialized = true
	s.Message(apnet.Message{Kind: apnet.MessagePlain, Text: "late"})
	s.Update()

	if len(env.messages) != 2 {
		t.Fatalf("messages = %v", env.messages)
	}
	if env.messages[0] != "~2late" || env.messages[1] != "~2early" {
		t.Fatalf("unexpected delivery: %v", env.messages)
	}
}
