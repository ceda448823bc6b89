package game

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sablehq/sable/internal/core"
	"github.com/sablehq/sable/internal/core/data"
	"github.com/sablehq/sable/internal/tasks"
)

// AutosaveCategory is the task category name for the periodic activity save.
const AutosaveCategory = "autosave"

// AutosaveParams identify an autosave task. A player has at most one, so the
// parameters carry nothing beyond the player id the scheduler already knows.
type AutosaveParams struct{}

// DeriveAutosaveID is the identifier rule registered for the autosave
// category.
func DeriveAutosaveID(playerID string, _ AutosaveParams) string {
	return playerID + "/" + AutosaveCategory
}

// RegisterAutosave declares the autosave category with the scheduler.
func RegisterAutosave(s *tasks.Scheduler) (*tasks.Category[AutosaveParams], error) {
	return tasks.RegisterCategory(s, AutosaveCategory, DeriveAutosaveID)
}

// AutosaveTask periodically stamps the player's last-activity time while
// they are connected. It runs until its owning connection goes away.
type AutosaveTask struct {
	db       *gorm.DB
	clock    core.Clock
	playerID string
}

func NewAutosaveTask(db *gorm.DB, playerID string) *AutosaveTask {
	return &AutosaveTask{db: db, clock: core.SystemClock{}, playerID: playerID}
}

func (t *AutosaveTask) Config() tasks.Config {
	return tasks.Config{
		StartDelay:     30 * time.Second,
		RepeatInterval: time.Minute,
	}
}

func (t *AutosaveTask) Execute(context.Context) error {
	return data.UpdateLastActive(t.db, t.playerID, core.TimestampMillis(t.clock))
}

// OnCancelled writes one final stamp so the recorded activity is no staler
// than the moment the task ended.
func (t *AutosaveTask) OnCancelled(context.Context, tasks.Reason) {
	_ = data.UpdateLastActive(t.db, t.playerID, core.TimestampMillis(t.clock))
}
