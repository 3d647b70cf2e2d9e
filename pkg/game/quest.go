package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Quest statuses. Quests are created active; status only changes through
// evaluation-driven updates.
const (
	QuestStatusActive    = "active"
	QuestStatusCompleted = "completed"
	QuestStatusFailed    = "failed"
)

// QuestStep is one ordered step of a quest. Completed is monotonic: once a
// step is marked complete, no update un-sets it.
type QuestStep struct {
	Order              int    `json:"order"`
	Description        string `json:"description"`
	Challenge          string `json:"challenge"`
	Hint               string `json:"hint"`
	EducationalContent string `json:"educationalContent,omitempty"`
	Completed          bool   `json:"completed"`
}

// QuestRewards describe what finishing a quest yields.
type QuestRewards struct {
	Knowledge     string   `json:"knowledge"`
	InGameRewards []string `json:"inGameRewards"`
}

// Quest is one generated quest of a game. Created in a batch at adventure
// creation; steps and status are mutated by action evaluation.
type Quest struct {
	ID                uuid.UUID    `json:"id"`
	GameID            uuid.UUID    `json:"gameId"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	LearningGoals     []string     `json:"learningGoals"`
	Steps             []QuestStep  `json:"steps"`
	NPCsInvolved      []string     `json:"npcsInvolved"`
	LocationsInvolved []string     `json:"locationsInvolved"`
	Rewards           QuestRewards `json:"rewards"`
	Difficulty        string       `json:"difficulty"`
	Status            string       `json:"status"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (q *Quest) Validate() error {
	if q.Title == "" {
		return fmt.Errorf("quest title is required")
	}
	if len(q.Steps) == 0 {
		return fmt.Errorf("quest must have at least one step")
	}
	return nil
}

// QuestUpdate is an evaluation-driven mutation of a quest: the step at the
// given order is marked complete, and the status is overwritten when
// NewStatus is non-empty.
type QuestUpdate struct {
	QuestID       string `json:"questId"`
	StepCompleted int    `json:"stepCompleted"`
	NewStatus     string `json:"newStatus,omitempty"`
}

// ApplyUpdate applies an evaluation-driven update. Step completion is
// monotonic; an update never clears a completed flag. Returns true when the
// quest changed.
func (q *Quest) ApplyUpdate(u QuestUpdate) bool {
	changed := false
	for i := range q.Steps {
		if q.Steps[i].Order == u.StepCompleted && !q.Steps[i].Completed {
			q.Steps[i].Completed = true
			changed = true
		}
	}
	if u.NewStatus != "" && u.NewStatus != q.Status {
		q.Status = u.NewStatus
		changed = true
	}
	if changed {
		q.UpdatedAt = time.Now().UTC()
	}
	return changed
}
