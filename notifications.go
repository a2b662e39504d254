package client

// Notification icon geometry and lifecycle. Icons drop in from above the
// screen, stack with padding, rest for a while, then slide out left.
const (
	NotifSize    = 30
	NotifPadding = 2

	notifRestTicks = 350 * 3 / 4
)

type NotificationState int

const (
	NotifPending NotificationState = iota
	NotifDropping
	NotifHiding
)

// NotificationIcon is one on-screen item announcement. X and Y are the
// integer draw coordinates derived from the float physics state.
type NotificationIcon struct {
	Sprite string
	Text   string
	X, Y   int

	xf, yf     float32
	velX, velY float32
	t          int
	State      NotificationState
}

func (s *Session) spawnNotification(sprite, text string) {
	icon := NotificationIcon{
		Sprite: sprite,
		Text:   text,
		xf:     NotifSize/2 + NotifPadding,
		yf:     -200 + NotifSize/2,
		State:  NotifPending,
	}
	icon.X = int(icon.xf)
	icon.Y = int(icon.yf)
	s.icons = append(s.icons, icon)
}

// NotificationIcons returns the live icons in stacking order.
func (s *Session) NotificationIcons() []NotificationIcon {
	return s.icons
}

// tickNotifications advances the icon physics one frame. Drop speed, rest
// time, and slide-out speed all scale with the queue length so a backlog
// clears faster (four icons fit on screen).
func (s *Session) tickNotifications() {
	backlog := float32(len(s.icons) / 4)

	previousY := float32(2.0)
	kept := s.icons[:0]
	for i := range s.icons {
		icon := s.icons[i]

		if icon.State == NotifPending && previousY > -100 {
			icon.State = NotifDropping
		}
		if icon.State == NotifPending {
			kept = append(kept, icon)
			continue
		}

		if icon.State == NotifDropping {
			icon.velY += 0.15 + backlog*0.25
			if icon.velY > 8 {
				icon.velY = 8
			}
			icon.yf += icon.velY
			if icon.yf >= previousY-NotifSize-NotifPadding {
				icon.yf = previousY - NotifSize - NotifPadding
				icon.velY *= -0.3 / (backlog*0.05 + 1)
				icon.t += len(s.icons)/4 + 1
				if icon.t > notifRestTicks {
					icon.State = NotifHiding
				}
			}
		}

		if icon.State == NotifHiding {
			icon.velX -= 0.14 + backlog*0.1
			icon.xf += icon.velX
			if icon.xf < -NotifSize/2 {
				continue
			}
		}

		icon.X = int(icon.xf)
		icon.Y = int(icon.yf)
		previousY = icon.yf
		kept = append(kept, icon)
	}
	s.icons = kept
}
