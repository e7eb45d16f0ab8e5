package room

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/itoloop/itoserver/models"
)

func TestRegistry_CreateAndGetRoom(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	room, err := registry.CreateRoom("AB2CD3", "device-host", "Ana", testConfig())
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	got, err := registry.GetRoom("AB2CD3")
	if err != nil {
		t.Fatalf("GetRoom failed: %v", err)
	}
	if got != room {
		t.Error("GetRoom should return the same room instance")
	}

	// Codes are case-insensitive.
	got, err = registry.GetRoom("ab2cd3")
	if err != nil || got != room {
		t.Errorf("Lowercase lookup should resolve to the same room, got %v (%v)", got, err)
	}
}

func TestRegistry_DuplicateCode(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	if _, err := registry.CreateRoom("AB2CD3", "device-a", "Ana", testConfig()); err != nil {
		t.Fatal(err)
	}
	if _, err := registry.CreateRoom("ab2cd3", "device-b", "Bia", testConfig()); !errors.Is(err, ErrDuplicateCode) {
		t.Errorf("Expected ErrDuplicateCode, got %v", err)
	}
}

func TestRegistry_CodeValidation(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	for _, code := range []string{"", "ABC", "ABC2O4", "TOOLONG2"} {
		if _, err := registry.CreateRoom(code, "device-a", "Ana", testConfig()); !errors.Is(err, ErrValidation) {
			t.Errorf("Code %q should fail validation, got %v", code, err)
		}
	}
}

func TestRegistry_ConfigValidation(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	bad := []Config{
		{MaxPlayers: 2, Rounds: 5, ClueTime: 60, GameMode: models.ModeClassic},
		{MaxPlayers: 101, Rounds: 5, ClueTime: 60, GameMode: models.ModeClassic},
		{MaxPlayers: 8, Rounds: 0, ClueTime: 60, GameMode: models.ModeClassic},
		{MaxPlayers: 8, Rounds: 5, ClueTime: 5, GameMode: models.ModeClassic},
		{MaxPlayers: 8, Rounds: 5, ClueTime: 60, GameMode: "speedrun"},
	}
	for i, cfg := range bad {
		if _, err := registry.CreateRoom("AB2CD3", "device-a", "Ana", cfg); !errors.Is(err, ErrValidation) {
			t.Errorf("Config %d should fail validation, got %v", i, err)
		}
	}
}

func TestRegistry_GetRoomNotFound(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	if _, err := registry.GetRoom("ZZ9ZZ9"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_RestoresRoomFromStore(t *testing.T) {
	repo := newMemRepository()
	pub := &mockPublisher{}

	// A first registry (process) creates the room and plays a round.
	first := NewRegistry(repo, pub)
	room, err := first.CreateRoom("AB2CD3", "device-host", "Ana", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	seatPlayers(t, room, "device-2", "device-3")
	if err := room.StartGame("device-host"); err != nil {
		t.Fatal(err)
	}
	theme := room.Snapshot().Room.CurrentTheme

	// A second registry simulates a restarted process over the same store.
	second := NewRegistry(repo, pub)
	restored, err := second.GetRoom("AB2CD3")
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	snap := restored.Snapshot()
	if snap.Room.Status != models.PhaseBriefing || snap.Room.CurrentRound != 1 {
		t.Errorf("Restored room lost its phase: %s round %d", snap.Room.Status, snap.Room.CurrentRound)
	}
	if snap.Room.CurrentTheme != theme {
		t.Errorf("Restored room lost its theme: %q vs %q", snap.Room.CurrentTheme, theme)
	}
	if len(snap.Players) != 3 {
		t.Errorf("Restored room lost seats: %d", len(snap.Players))
	}
}

func TestRegistry_DeleteRoom(t *testing.T) {
	repo := newMemRepository()
	registry := NewRegistry(repo, &mockPublisher{})
	room, err := registry.CreateRoom("AB2CD3", "device-host", "Ana", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	seatPlayers(t, room, "device-2")

	if err := registry.DeleteRoom("AB2CD3", "device-2"); !errors.Is(err, ErrNotHost) {
		t.Errorf("Non-host delete should fail, got %v", err)
	}

	if err := registry.DeleteRoom("AB2CD3", "device-host"); err != nil {
		t.Fatalf("DeleteRoom failed: %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("Expected empty registry, got %d rooms", registry.Count())
	}
	if _, err := registry.GetRoom("AB2CD3"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Deleted room must not restore, got %v", err)
	}
	if len(repo.players) != 0 {
		t.Errorf("Delete must cascade players, %d left", len(repo.players))
	}
}

func TestRegistry_ConcurrentCreateAndLookup(t *testing.T) {
	registry := NewRegistry(newMemRepository(), &mockPublisher{})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code := fmt.Sprintf("AB2C%c%c", 'D'+i%8, '2'+i%8)
			if _, err := registry.CreateRoom(code, fmt.Sprintf("device-%d", i), "Ana", testConfig()); err != nil && !errors.Is(err, ErrDuplicateCode) {
				t.Errorf("CreateRoom: %v", err)
			}
			registry.GetRoom(code)
		}(i)
	}
	wg.Wait()

	if registry.Count() == 0 {
		t.Error("Expected at least one room after concurrent creates")
	}
}
