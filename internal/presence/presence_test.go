package presence

import (
	"testing"
	"time"
)

func TestTrackerOnlineOffline(t *testing.T) {
	tracker := NewTracker(0)

	tracker.Online("1", "alice", "10.0.0.1:5000")
	tracker.Online("2", "bob", "10.0.0.2:5000")

	if !tracker.IsOnline("1") || !tracker.IsOnline("2") {
		t.Fatal("expected both players online")
	}

	tracker.Offline("1")
	if tracker.IsOnline("1") {
		t.Error("player 1 should be offline")
	}
	if !tracker.IsOnline("2") {
		t.Error("player 2 should still be online")
	}

	// Unknown players are a no-op.
	tracker.Offline("999")
}

func TestTrackerSnapshot(t *testing.T) {
	tracker := NewTracker(0)
	tracker.Online("1", "alice", "10.0.0.1:5000")
	tracker.Online("2", "bob", "10.0.0.2:5000")

	byID := make(map[string]Entry)
	for _, entry := range tracker.Snapshot() {
		byID[entry.PlayerID] = entry
	}

	if len(byID) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(byID))
	}
	if byID["1"].Username != "alice" || byID["1"].RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("unexpected entry for player 1: %+v", byID["1"])
	}
	if byID["1"].ConnectedAt.IsZero() {
		t.Error("ConnectedAt should be populated")
	}
}

func TestTrackerRecords(t *testing.T) {
	tracker := NewTracker(0)

	tracker.PutRecord("1", "last_room", "lobby")
	tracker.PutRecord("1", "trade_partner", "2")
	tracker.PutRecord("2", "last_room", "arena")

	if v, found := tracker.GetRecord("1", "last_room"); !found || v != "lobby" {
		t.Errorf("GetRecord(1, last_room) = %v, %v", v, found)
	}

	// Disconnect clears the player's records but nobody else's.
	tracker.Offline("1")
	if _, found := tracker.GetRecord("1", "last_room"); found {
		t.Error("records for player 1 should be cleared on disconnect")
	}
	if _, found := tracker.GetRecord("1", "trade_partner"); found {
		t.Error("all of player 1's records should be cleared")
	}
	if v, found := tracker.GetRecord("2", "last_room"); !found || v != "arena" {
		t.Errorf("player 2's records should survive, got %v, %v", v, found)
	}
}

func TestTrackerRecordTTL(t *testing.T) {
	tracker := NewTracker(20 * time.Millisecond)

	tracker.PutRecord("1", "ephemeral", "x")
	if _, found := tracker.GetRecord("1", "ephemeral"); !found {
		t.Fatal("record should be readable before its TTL elapses")
	}

	time.Sleep(40 * time.Millisecond)
	if _, found := tracker.GetRecord("1", "ephemeral"); found {
		t.Error("record should have expired")
	}
}
