package client

// CheckMax bounds how many checks one level can hold.
const CheckMax = 128

// LevelIndex addresses a level by 0-based episode and map. Build one with
// Session.TryMakeLevelIndex rather than from engine-native numbers; PWAD
// variants remap those freely.
type LevelIndex struct {
	Ep  int
	Map int
}

// LevelState is the mutable per-level progress.
type LevelState struct {
	Completed bool
	Keys      [3]bool
	HasMap    bool
	Unlocked  bool
	Special   bool
	Flipped   bool
	Music     int

	// Checks holds the local thing indices already checked, in the order
	// they landed. Append-only, deduplicated.
	Checks []int
}

// IsChecked reports whether a local thing index was already checked.
func (s *LevelState) IsChecked(index int) bool {
	for _, check := range s.Checks {
		if check == index {
			return true
		}
	}
	return false
}

// CheckCount returns how many checks landed in this level.
func (s *LevelState) CheckCount() int { return len(s.Checks) }

// InventorySlot is one stackable inventory entry.
type InventorySlot struct {
	Type  int
	Count int
}

// PlayerState is the mutable cross-level player progress. Slices are sized
// from the game info tables at session construction.
type PlayerState struct {
	Health      int
	ArmorPoints int
	ArmorType   int
	ReadyWeapon int
	KillCount   int
	ItemCount   int
	SecretCount int

	Powers           []int
	WeaponOwned      []bool
	Ammo             []int
	MaxAmmo          []int
	CapacityUpgrades []int
	Inventory        []InventorySlot
}
