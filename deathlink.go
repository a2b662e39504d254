package client

// OnDeath broadcasts this player's death to linked slots. No-op when
// deathlink was forced off locally.
func (s *Session) OnDeath() {
	if s.settings.ForceDeathlinkOff || s.conn == nil {
		return
	}
	s.conn.SendDeathLink(s.settings.SlotName + " died")
}

// ClearDeath forgets a pending remote death, typically after applying it.
func (s *Session) ClearDeath() {
	if s.conn == nil {
		return
	}
	s.conn.ClearDeathLink()
}

// ShouldDie reports whether a linked slot died since the last ClearDeath.
func (s *Session) ShouldDie() bool {
	if s.settings.ForceDeathlinkOff || s.conn == nil {
		return false
	}
	return s.conn.DeathLinkPending()
}

// RemoteSet stores a counter in the room's data storage, globally or
// namespaced to this slot.
func (s *Session) RemoteSet(key string, perSlot bool, value int) {
	if s.conn == nil {
		return
	}
	s.conn.Set(key, perSlot, value)
}
