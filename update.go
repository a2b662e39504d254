package client

// Update is the per-frame entry point. It flushes messages cached during
// the handshake, drains pending network events, hands queued items to the
// player when in game, and advances the notification icons.
//
// The item queue drains in arrival order; grants received while dead or in
// a menu reach the player on the first in-game frame.
func (s *Session) Update() {
	if s.initialized && len(s.cachedMessages) > 0 {
		for _, cached := range s.cachedMessages {
			s.message(cached)
		}
		s.cachedMessages = nil
	}

	if s.conn != nil {
		s.conn.Pump(s)
	}

	if s.inGame {
		for len(s.itemQueue) > 0 {
			itemID := s.itemQueue[0]
			s.itemQueue = s.itemQueue[1:]
			s.processReceivedItem(itemID)
		}
	}

	s.tickNotifications()
}
