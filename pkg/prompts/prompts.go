// Package prompts builds the instruction messages for each generation kind
// and decodes the JSON the model returns. Builders are pure: the same inputs
// always produce the same messages, and every parameter relevant to a kind is
// embedded deterministically.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eduquest/adventure-engine/pkg/chat"
	"github.com/eduquest/adventure-engine/pkg/game"
)

// SystemInstruction is the fixed system message sent with every generation
// request. It demands JSON-only output.
const SystemInstruction = `You are a creative assistant that generates content for an educational roleplaying game for children. Provide your response as valid JSON without any additional text.`

// CharacterOptionCount is the number of archetype templates generated per game.
const CharacterOptionCount = 4

// QuestCount is the number of quests generated at adventure creation.
const QuestCount = 3

// worldSchema is the response shape requested for world generation.
const worldSchema = `{
  "description": "string",
  "locations": [
    {
      "name": "string",
      "description": "string"
    }
  ],
  "npcs": [
    {
      "name": "string",
      "role": "string",
      "description": "string",
      "motivation": "string"
    }
  ],
  "history": "string",
  "challenges": [
    {
      "name": "string",
      "description": "string",
      "learningConnection": "string"
    }
  ],
  "imagePrompt": "string that describes what the world looks like for image generation"
}`

const rulesSchema = `{
  "coreMechanics": [
    {
      "name": "string",
      "description": "string",
      "howToUse": "string"
    }
  ],
  "characterAttributes": [
    {
      "name": "string",
      "description": "string",
      "range": "string (e.g., '1-10')"
    }
  ],
  "challengeRules": "string",
  "progressionSystem": "string",
  "learningMechanics": [
    {
      "name": "string",
      "description": "string",
      "educationalBenefit": "string"
    }
  ]
}`

const characterOptionsSchema = `[
  {
    "name": "string (archetype name)",
    "description": "string",
    "strengths": ["string"],
    "challenges": ["string"],
    "startingAttributes": {
      "attributeName1": number,
      "attributeName2": number
    },
    "specialAbility": {
      "name": "string",
      "description": "string",
      "educationalAspect": "string"
    },
    "backgroundOptions": [
      {
        "name": "string",
        "description": "string"
      }
    ],
    "imagePrompt": "string describing what this character type looks like for image generation"
  }
]`

const questsSchema = `[
  {
    "title": "string",
    "description": "string",
    "learningGoals": ["string"],
    "steps": [
      {
        "order": number,
        "description": "string",
        "challenge": "string",
        "hint": "string",
        "educationalContent": "string (what they'll learn from this step)"
      }
    ],
    "npcsInvolved": ["string (names from the game world)"],
    "locationsInvolved": ["string (locations from the game world)"],
    "rewards": {
      "knowledge": "string (what they learn)",
      "inGameRewards": ["string"]
    },
    "difficulty": "string (easy, medium, hard)"
  }
]`

const sceneSchema = `{
  "id": "string",
  "title": "string",
  "description": "string (vivid description of the scene)",
  "narration": "string (what the game master would say to the players)",
  "npcsPresent": [
    {
      "name": "string",
      "dialogue": "string",
      "attitude": "string"
    }
  ],
  "challenges": [
    {
      "description": "string",
      "difficulty": "string",
      "skillsNeeded": ["string"]
    }
  ],
  "availableActions": ["string"],
  "educationalContent": {
    "topic": "string",
    "presentation": "string (how it's incorporated into the scene)"
  },
  "imagePrompt": "string describing this scene for image generation"
}`

const actionResultSchema = `{
  "success": boolean,
  "description": "string (detailed description of what happens)",
  "educationalValue": {
    "topic": "string",
    "learningPoints": ["string"]
  },
  "characterUpdates": {
    "attributeName1": number (new value),
    "attributeName2": number (new value)
  },
  "questUpdates": [
    {
      "questId": "string (id of an active quest)",
      "stepCompleted": number (order of the completed step),
      "newStatus": "string (omit to keep the current status)"
    }
  ],
  "feedback": "string (educational feedback for the player)"
}`

// messages pairs the fixed system instruction with a user prompt.
func messages(prompt string) []chat.Message {
	return []chat.Message{
		chat.System(SystemInstruction),
		chat.User(prompt),
	}
}

// World builds the world-generation prompt from the game settings.
func World(s game.Settings) []chat.Message {
	var sb strings.Builder
	sb.WriteString("Create an engaging and educational game world for a roleplaying game with the following parameters:\n\n")
	fmt.Fprintf(&sb, "Title: %s\n", s.Title)
	fmt.Fprintf(&sb, "Learning Objective: %s\n", s.LearningObjective)
	fmt.Fprintf(&sb, "Age Group: %s\n", s.AgeGroup)
	fmt.Fprintf(&sb, "Theme/Setting: %s\n", s.Theme)
	fmt.Fprintf(&sb, "Difficulty Level: %s\n\n", s.DifficultyLevel)
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. A rich description of the world (3-4 paragraphs)\n")
	sb.WriteString("2. 5-7 key locations in this world\n")
	sb.WriteString("3. 3-5 main NPCs that inhabit this world\n")
	sb.WriteString("4. A brief history of the world\n")
	sb.WriteString("5. Current challenges or conflicts in the world that relate to the learning objective\n\n")
	sb.WriteString("Format the response as a JSON object with the following structure:\n")
	sb.WriteString(worldSchema)
	return messages(sb.String())
}

// Rules builds the rules-generation prompt from the game settings.
func Rules(s game.Settings) []chat.Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create simple and engaging game rules for a roleplaying game designed for children in the %s age range.\n", s.AgeGroup)
	fmt.Fprintf(&sb, "The game should have a %s difficulty level and focus on teaching: %s.\n\n", s.DifficultyLevel, s.LearningObjective)
	sb.WriteString("Please provide:\n")
	sb.WriteString("1. Core mechanics (adapted to be age-appropriate)\n")
	sb.WriteString("2. Character attributes and skills relevant to the learning objective\n")
	sb.WriteString("3. Simple rules for challenges and conflict resolution\n")
	sb.WriteString("4. Rules for progression and rewards\n")
	sb.WriteString("5. Special mechanics that reinforce the learning objective\n\n")
	sb.WriteString("Format the response as a JSON object with the following structure:\n")
	sb.WriteString(rulesSchema)
	return messages(sb.String())
}

// CharacterOptions builds the archetype-template prompt. It consumes the
// world description and the rules' attribute schema.
func CharacterOptions(s game.Settings, world *game.World, rules *game.Rules) []chat.Message {
	attrs, _ := json.Marshal(rules.CharacterAttributes)

	var sb strings.Builder
	sb.WriteString("Create engaging character options for a children's educational roleplaying game.\n\n")
	fmt.Fprintf(&sb, "Game World Description: %s\n", world.Description)
	fmt.Fprintf(&sb, "Learning Objective: %s\n", s.LearningObjective)
	fmt.Fprintf(&sb, "Age Group: %s\n\n", s.AgeGroup)
	fmt.Fprintf(&sb, "Character Attributes from Game Rules: %s\n\n", attrs)
	fmt.Fprintf(&sb, "Please generate %d different character archetypes that would be appealing to children and relevant to both the game world and learning objectives.\n\n", CharacterOptionCount)
	sb.WriteString("Format the response as a JSON array with the following structure:\n")
	sb.WriteString(characterOptionsSchema)
	return messages(sb.String())
}

// Quests builds the quest-generation prompt. World locations and NPCs are
// referenced by name only to bound prompt size.
func Quests(s game.Settings, world *game.World) []chat.Message {
	worldSummary, _ := json.Marshal(map[string]any{
		"description": world.Description,
		"locations":   world.LocationNames(),
		"npcs":        world.NPCNames(),
	})

	var sb strings.Builder
	sb.WriteString("Create educational and engaging quests for a children's roleplaying game.\n\n")
	fmt.Fprintf(&sb, "Game World: %s\n", worldSummary)
	fmt.Fprintf(&sb, "Learning Objective: %s\n\n", s.LearningObjective)
	fmt.Fprintf(&sb, "Please generate %d quests that will teach aspects of the learning objective while being fun and engaging.\n", QuestCount)
	sb.WriteString("Each quest should have clear goals, challenges that require both problem-solving and application of the educational content, and meaningful rewards.\n\n")
	sb.WriteString("Format the response as a JSON array with the following structure:\n")
	sb.WriteString(questsSchema)
	return messages(sb.String())
}

// initialSceneLocationCount bounds how many locations the opening prompt
// names.
const initialSceneLocationCount = 2

// InitialScene builds the opening-scene prompt. There is no previous scene
// and no player action.
func InitialScene(world *game.World, characters []game.Character, quests []game.Quest) []chat.Message {
	locations := world.LocationNames()
	if len(locations) > initialSceneLocationCount {
		locations = locations[:initialSceneLocationCount]
	}
	worldSummary, _ := json.Marshal(map[string]any{
		"description": world.Description,
		"locations":   locations,
	})

	type charSummary struct {
		Name      string `json:"name"`
		Archetype string `json:"archetype"`
	}
	chars := make([]charSummary, 0, len(characters))
	for _, c := range characters {
		chars = append(chars, charSummary{Name: c.Name, Archetype: c.Archetype})
	}
	charJSON, _ := json.Marshal(chars)

	type questSummary struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	qs := make([]questSummary, 0, len(quests))
	for _, q := range quests {
		qs = append(qs, questSummary{Title: q.Title, Description: q.Description})
	}
	questJSON, _ := json.Marshal(qs)

	var sb strings.Builder
	sb.WriteString("Create an engaging opening scene for a children's educational roleplaying game.\n\n")
	fmt.Fprintf(&sb, "Game World: %s\n\n", worldSummary)
	fmt.Fprintf(&sb, "Characters: %s\n\n", charJSON)
	fmt.Fprintf(&sb, "Active Quests: %s\n\n", questJSON)
	sb.WriteString("This is the very first scene of the adventure. Please create an engaging introduction that:\n")
	sb.WriteString("1. Sets the scene in a descriptive and age-appropriate way\n")
	sb.WriteString("2. Introduces a hook related to the first quest\n")
	sb.WriteString("3. Gives players clear options for what they can do next\n\n")
	sb.WriteString("Format the response as a JSON object with the following structure:\n")
	sb.WriteString(sceneSchema)
	return messages(sb.String())
}

// nextSceneWorldLimit bounds how much of the world description the
// next-scene prompt carries.
const nextSceneWorldLimit = 200

// NextScene builds the follow-up scene prompt from the previous scene, the
// player's action, and the action's evaluation.
func NextScene(world *game.World, previous *game.Scene, action string, result *game.ActionResult) []chat.Message {
	summary := world.Description
	if len(summary) > nextSceneWorldLimit {
		summary = summary[:nextSceneWorldLimit] + "..."
	}

	resultJSON := []byte(`{"success":true}`)
	if result != nil {
		resultJSON, _ = json.Marshal(result)
	}

	var sb strings.Builder
	sb.WriteString("Create the next scene for a children's educational roleplaying game based on the player's action.\n\n")
	fmt.Fprintf(&sb, "Game World Summary: %s\n\n", summary)
	fmt.Fprintf(&sb, "Previous Scene Title: %s\n", previous.Title)
	fmt.Fprintf(&sb, "Previous Scene Description: %s\n\n", previous.Description)
	fmt.Fprintf(&sb, "Player Action: %q\n", action)
	fmt.Fprintf(&sb, "Action Result: %s\n\n", resultJSON)
	sb.WriteString("Please create the next scene that:\n")
	sb.WriteString("1. Responds directly to the player's action\n")
	sb.WriteString("2. Moves the story forward\n")
	sb.WriteString("3. Incorporates educational content related to the learning objectives\n")
	sb.WriteString("4. Provides new challenges or opportunities\n")
	sb.WriteString("5. Gives players clear options for what they can do next\n\n")
	sb.WriteString("Format the response as a JSON object with the following structure:\n")
	sb.WriteString(sceneSchema)
	return messages(sb.String())
}

// EvaluateAction builds the action-evaluation prompt. Active quests are
// included with their ids and step orders so questUpdates can reference real
// records.
func EvaluateAction(character *game.Character, scene *game.Scene, rules *game.Rules, quests []game.Quest, action string) []chat.Message {
	charJSON, _ := json.Marshal(map[string]any{
		"name":       character.Name,
		"archetype":  character.Archetype,
		"attributes": character.Attributes,
	})
	sceneJSON, _ := json.Marshal(map[string]any{
		"title":       scene.Title,
		"description": scene.Description,
		"challenges":  scene.Challenges,
	})

	challengeRules := rules.ChallengeRules
	if len(challengeRules) > 100 {
		challengeRules = challengeRules[:100] + "..."
	}
	rulesJSON, _ := json.Marshal(map[string]any{
		"attributes":     rules.AttributeNames(),
		"challengeRules": challengeRules,
	})

	type questRef struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Steps  []int  `json:"stepOrders"`
		Status string `json:"status"`
	}
	refs := make([]questRef, 0, len(quests))
	for _, q := range quests {
		orders := make([]int, 0, len(q.Steps))
		for _, s := range q.Steps {
			if !s.Completed {
				orders = append(orders, s.Order)
			}
		}
		refs = append(refs, questRef{ID: q.ID.String(), Title: q.Title, Steps: orders, Status: q.Status})
	}
	questJSON, _ := json.Marshal(refs)

	var sb strings.Builder
	sb.WriteString("Evaluate a player's action in a children's educational roleplaying game.\n\n")
	fmt.Fprintf(&sb, "Character: %s\n\n", charJSON)
	fmt.Fprintf(&sb, "Current Scene: %s\n\n", sceneJSON)
	fmt.Fprintf(&sb, "Game Rules Summary: %s\n\n", rulesJSON)
	fmt.Fprintf(&sb, "Active Quests: %s\n\n", questJSON)
	fmt.Fprintf(&sb, "Player's Action: %q\n\n", action)
	sb.WriteString("Please evaluate this action and determine the outcome. Consider:\n")
	sb.WriteString("1. Whether the action is possible in the current scene\n")
	sb.WriteString("2. What skills or attributes from the character would be used\n")
	sb.WriteString("3. The difficulty level of the action\n")
	sb.WriteString("4. The educational value of the action\n")
	sb.WriteString("5. The narrative impact of the action\n\n")
	sb.WriteString("Format the response as a JSON object with the following structure:\n")
	sb.WriteString(actionResultSchema)
	return messages(sb.String())
}

// ImagePrompt wraps a raw image description with the child-safety framing
// used for every image request.
func ImagePrompt(description string) string {
	return "For a children's educational game, create a safe, age-appropriate image: " + description
}
