package game

import "fmt"

// SceneNPC is an NPC present in a scene, with its dialogue.
type SceneNPC struct {
	Name     string `json:"name"`
	Dialogue string `json:"dialogue"`
	Attitude string `json:"attitude"`
}

// SceneChallenge is a challenge presented by a scene.
type SceneChallenge struct {
	Description  string   `json:"description"`
	Difficulty   string   `json:"difficulty"`
	SkillsNeeded []string `json:"skillsNeeded"`
}

// EducationalContent is the learning block woven into a scene.
type EducationalContent struct {
	Topic        string `json:"topic"`
	Presentation string `json:"presentation"`
}

// Scene is one generated narrative beat. Scenes are never stored on their
// own; they live as elements of a session's history.
type Scene struct {
	ID                 string              `json:"id"`
	Title              string              `json:"title"`
	Description        string              `json:"description"`
	Narration          string              `json:"narration"`
	NPCsPresent        []SceneNPC          `json:"npcsPresent"`
	Challenges         []SceneChallenge    `json:"challenges"`
	AvailableActions   []string            `json:"availableActions"`
	EducationalContent *EducationalContent `json:"educationalContent,omitempty"`
	ImagePrompt        string              `json:"imagePrompt,omitempty"`
	ImageURL           string              `json:"imageUrl,omitempty"`
}

func (s *Scene) Validate() error {
	if s.Title == "" {
		return fmt.Errorf("scene title is required")
	}
	if s.Narration == "" {
		return fmt.Errorf("scene narration is required")
	}
	if len(s.AvailableActions) == 0 {
		return fmt.Errorf("scene must suggest at least one action")
	}
	return nil
}

// EducationalValue summarizes what an evaluated action taught.
type EducationalValue struct {
	Topic          string   `json:"topic"`
	LearningPoints []string `json:"learningPoints"`
}

// ActionResult is the AI's judgment of a player action against the current
// scene, character and rules.
type ActionResult struct {
	Success          bool             `json:"success"`
	Description      string           `json:"description"`
	EducationalValue EducationalValue `json:"educationalValue"`
	CharacterUpdates map[string]int   `json:"characterUpdates,omitempty"`
	QuestUpdates     []QuestUpdate    `json:"questUpdates,omitempty"`
	Feedback         string           `json:"feedback"`
}

func (r *ActionResult) Validate() error {
	if r.Description == "" {
		return fmt.Errorf("action result description is required")
	}
	return nil
}
