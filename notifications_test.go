package client

import "testing"

func TestNotificationDropsAndRests(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.spawnNotification("SHOTA0", "(E1M1)")

	s.tickNotifications()
	icons := s.NotificationIcons()
	if len(icons) != 1 || icons[0].State != NotifDropping {
		t.Fatalf("icon not dropping after first tick: %+v", icons)
	}

	for i := 0; i < 200; i++ {
		s.tickNotifications()
	}
	icons = s.NotificationIcons()
	if len(icons) != 1 {
		t.Fatalf("icon vanished while resting")
	}
	restY := -(NotifSize + NotifPadding) + 2
	if icons[0].Y != restY {
		t.Fatalf("resting Y = %d, want %d", icons[0].Y, restY)
	}
	if icons[0].X != NotifSize/2+NotifPadding {
		t.Fatalf("resting X = %d", icons[0].X)
	}
}

func TestNotificationSlidesOutAndExpires(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.spawnNotification("SHOTA0", "")
	for i := 0; i < 5000; i++ {
		s.tickNotifications()
		if len(s.NotificationIcons()) == 0 {
			return
		}
	}
	t.Fatalf("icon never expired: %+v", s.NotificationIcons())
}

func TestNotificationsStack(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.spawnNotification("SHOTA0", "")
	s.spawnNotification("BKEYA0", "")

	// The second icon holds above the screen until the first clears the
	// drop zone.
	s.tickNotifications()
	icons := s.NotificationIcons()
	if icons[0].State != NotifDropping {
		t.Fatalf("first icon state = %v", icons[0].State)
	}
	if icons[1].State != NotifPending {
		t.Fatalf("second icon started dropping immediately")
	}

	for i := 0; i < 100; i++ {
		s.tickNotifications()
	}
	icons = s.NotificationIcons()
	if len(icons) != 2 {
		t.Fatalf("icons = %d, want 2 stacked", len(icons))
	}
	if icons[1].Y >= icons[0].Y {
		t.Fatalf("icons overlap: %d and %d", icons[0].Y, icons[1].Y)
	}
}

func TestBacklogClearsFaster(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.session

	s.spawnNotification("SHOTA0", "")
	ticksAlone := 0
	for len(s.NotificationIcons()) > 0 {
		s.tickNotifications()
		ticksAlone++
		if ticksAlone > 10000 {
			t.Fatalf("single icon never expired")
		}
	}

	for i := 0; i < 8; i++ {
		s.spawnNotification("SHOTA0", "")
	}
	ticksCrowded := 0
	for len(s.NotificationIcons()) > 0 {
		s.tickNotifications()
		ticksCrowded++
		if ticksCrowded > 20000 {
			t.Fatalf("backlog never cleared")
		}
	}

	// Eight icons with accelerated physics should not take eight times as
	// long as one.
	if ticksCrowded >= ticksAlone*8 {
		t.Fatalf("backlog not accelerated: alone %d, crowded %d", ticksAlone, ticksCrowded)
	}
}
