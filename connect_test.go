package client

import (
	"sort"
	"testing"

	"doomlink/client/internal/apnet"
)

func sortedScouts(conn *fakeConn, t *testing.T) []int64 {
	t.Helper()
	if len(conn.sentScouts) != 1 {
		t.Fatalf("scout batches = %d, want 1", len(conn.sentScouts))
	}
	ids := append([]int64(nil), conn.sentScouts[0]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func answerScouts(conn *fakeConn) {
	conn.onScout = func(ids []int64) {
		items := make([]apnet.NetworkItem, len(ids))
		for i, id := range ids {
			items[i] = apnet.NetworkItem{Location: id, Flags: apnet.FlagProgression}
		}
		conn.queue(func(h apnet.Handler) { h.LocationInfo(items) })
	}
}

func TestScoutSkipsSanityAndUnreachable(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1, "episode2": 1})
		answerScouts(conn)
	})
	env.connect(t)

	// Sanity-gated things and completion pseudo-locations stay out; every
	// reachable check across both episodes goes in.
	want := []int64{451000, 451001, 451010, 451020, 451030}
	got := sortedScouts(env.conn, t)
	if len(got) != len(want) {
		t.Fatalf("scouted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scouted %v, want %v", got, want)
		}
	}
}

func TestScoutIncludesSanityChecksWhenEnabled(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1, "check_sanity": 1})
		answerScouts(conn)
	})
	env.connect(t)

	got := sortedScouts(env.conn, t)
	found := false
	for _, id := range got {
		if id == 451002 {
			found = true
		}
	}
	if !found {
		t.Fatalf("sanity location not scouted with sanity mode on: %v", got)
	}
}

func TestScoutOnlyEnabledEpisodes(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode2": 1})
		answerScouts(conn)
	})
	env.connect(t)

	for _, id := range sortedScouts(env.conn, t) {
		if id < 451020 {
			t.Fatalf("scouted a disabled episode's location %d", id)
		}
	}
}

func TestScoutTimeoutDegrades(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1})
		// No scout answer; the fake clock runs the wait out.
	})
	env.connect(t)

	if s := env.session; s.IsLocationProgression(LevelIndex{0, 0}, 0) {
		t.Fatalf("location marked progression with no scout answer")
	}
}

func TestScoutSkippedWhenCacheRestored(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1})
		answerScouts(conn)
	})
	env.connect(t)
	env.session.Shutdown()

	env2 := newTestEnv(t, func(settings *Settings, conn *fakeConn) {
		settings.SaveDir = env.session.settings.SaveDir
		conn.queueSlotData(map[string]any{"episode1": 1})
	})
	env2.connect(t)

	if len(env2.conn.sentScouts) != 0 {
		t.Fatalf("re-scouted despite restored cache: %v", env2.conn.sentScouts)
	}
	if !env2.session.IsLocationProgression(LevelIndex{0, 0}, 0) {
		t.Fatalf("restored progression cache not applied")
	}
}

func TestFlipAllLevels(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1, "episode2": 1, "flip_levels": 1})
	})
	env.connect(t)

	for ep := 0; ep < 2; ep++ {
		for mapIdx := 0; mapIdx < 2; mapIdx++ {
			if !env.session.LevelState(LevelIndex{ep, mapIdx}).Flipped {
				t.Fatalf("E%dM%d not flipped", ep+1, mapIdx+1)
			}
		}
	}
}

func TestSeededFeaturesAreDeterministic(t *testing.T) {
	run := func() ([]bool, []int) {
		env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
			conn.queueSlotData(map[string]any{
				"episode1": 1, "episode2": 1,
				"flip_levels": 2, "random_music": 1,
			})
		})
		env.connect(t)

		var flips []bool
		var music []int
		for ep := 0; ep < 2; ep++ {
			for mapIdx := 0; mapIdx < 2; mapIdx++ {
				state := env.session.LevelState(LevelIndex{ep, mapIdx})
				flips = append(flips, state.Flipped)
				music = append(music, state.Music)
			}
		}
		return flips, music
	}

	flips1, music1 := run()
	flips2, music2 := run()

	for i := range flips1 {
		if flips1[i] != flips2[i] {
			t.Fatalf("flips differ across runs: %v vs %v", flips1, flips2)
		}
		if music1[i] != music2[i] {
			t.Fatalf("music differs across runs: %v vs %v", music1, music2)
		}
	}
}

func TestMusicShuffleIsPermutation(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{
			"episode1": 1, "episode2": 1, "random_music": 1,
		})
	})
	env.connect(t)

	seen := map[int]int{}
	for ep := 0; ep < 2; ep++ {
		for mapIdx := 0; mapIdx < 2; mapIdx++ {
			seen[env.session.LevelState(LevelIndex{ep, mapIdx}).Music]++
		}
	}

	// Mode 1 shuffles the enabled episodes' own tracks, so the result is a
	// permutation: four distinct tracks.
	if len(seen) != 4 {
		t.Fatalf("music assignment not a permutation: %v", seen)
	}
}

func TestMusicDefaultsWithoutShuffle(t *testing.T) {
	env := newTestEnv(t, func(_ *Settings, conn *fakeConn) {
		conn.queueSlotData(map[string]any{"episode1": 1, "episode2": 1})
	})
	env.connect(t)

	// Episodic numbering: (episode-1)*maxMaps + map.
	wants := map[LevelIndex]int{
		{0, 0}: 1, {0, 1}: 2,
		{1, 0}: 3, {1, 1}: 4,
	}
	for idx, want := range wants {
		if got := env.session.LevelState(idx).Music; got != want {
			t.Fatalf("E%dM%d music = %d, want %d", idx.Ep+1, idx.Map+1, got, want)
		}
	}
}
