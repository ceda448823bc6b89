// Package presence tracks which players are online and holds short-lived
// per-player context records: scratch state handlers and tasks attach to a
// player for the duration of their session. Both are cleared when the
// connection loop tears the session down.
package presence

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Entry describes one online player.
type Entry struct {
	PlayerID    string
	Username    string
	RemoteAddr  string
	ConnectedAt time.Time
}

// Tracker is the in-memory presence table. Online entries never expire on
// their own (disconnect removes them); context records live until their TTL
// elapses or the player disconnects.
type Tracker struct {
	online  *gocache.Cache
	records *gocache.Cache
}

// NewTracker creates a Tracker whose context records default to recordTTL.
// Passing 0 keeps records until disconnect.
func NewTracker(recordTTL time.Duration) *Tracker {
	if recordTTL <= 0 {
		recordTTL = gocache.NoExpiration
	}
	return &Tracker{
		online:  gocache.New(gocache.NoExpiration, 10*time.Minute),
		records: gocache.New(recordTTL, 10*time.Minute),
	}
}

// Online marks a player as connected.
func (t *Tracker) Online(playerID, username, remoteAddr string) {
	t.online.Set(playerID, Entry{
		PlayerID:    playerID,
		Username:    username,
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
	}, gocache.NoExpiration)
}

// Offline removes a player's online entry along with all of their context
// records. Called by connection cleanup; unknown players are a no-op.
func (t *Tracker) Offline(playerID string) {
	t.online.Delete(playerID)
	for key := range t.records.Items() {
		if strings.HasPrefix(key, playerID+"/") {
			t.records.Delete(key)
		}
	}
}

// IsOnline reports whether the player currently has a connection.
func (t *Tracker) IsOnline(playerID string) bool {
	_, found := t.online.Get(playerID)
	return found
}

// Snapshot returns the current online entries.
func (t *Tracker) Snapshot() []Entry {
	items := t.online.Items()
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, item.Object.(Entry))
	}
	return entries
}

// PutRecord stores one context record for a player under the tracker's
// default TTL.
func (t *Tracker) PutRecord(playerID, key string, value any) {
	t.records.SetDefault(recordKey(playerID, key), value)
}

// GetRecord fetches a context record, reporting whether it was present.
func (t *Tracker) GetRecord(playerID, key string) (any, bool) {
	return t.records.Get(recordKey(playerID, key))
}

func recordKey(playerID, key string) string {
	return playerID + "/" + key
}
