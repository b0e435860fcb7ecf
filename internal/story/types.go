package story

import "time"

// Choice is one option offered to the player, either for the profile
// (character, setting, motivation) or for the next event of a turn.
type Choice struct {
	Emoji      string `json:"emoji" yaml:"emoji"`
	Name       string `json:"name" yaml:"name"`
	Choice     string `json:"choice" yaml:"choice"`
	ChoiceType string `json:"choice_type" yaml:"choice_type"`
}

// Label is the single line shown in menus.
func (c Choice) Label() string {
	switch {
	case c.Emoji == "" && c.Name == "":
		return c.Choice
	case c.Emoji == "":
		return c.Name + " - " + c.Choice
	default:
		return c.Emoji + " - " + c.Name + " - " + c.Choice
	}
}

// Choices is the model output for any "give me options" request.
type Choices struct {
	Choices []Choice `json:"choices"`
}

// Consequence is the model output for a player action.
type Consequence struct {
	Choice      string `json:"choice"`
	Consequence string `json:"consequence"`
	Plot        string `json:"plot"`
	Prose       string `json:"prose"`
}

// Answer is the model output for a player question.
type Answer struct {
	Answer string `json:"answer"`
}

// ProfileKind names one of the three profile slots chosen before play.
type ProfileKind string

const (
	ProfileCharacter  ProfileKind = "character"
	ProfileSetting    ProfileKind = "setting"
	ProfileMotivation ProfileKind = "motivation"
)

// ProfileKinds lists the profile slots in the order they are chosen.
var ProfileKinds = []ProfileKind{ProfileCharacter, ProfileSetting, ProfileMotivation}

// Valid reports whether k is a known profile slot.
func (k ProfileKind) Valid() bool {
	switch k {
	case ProfileCharacter, ProfileSetting, ProfileMotivation:
		return true
	}
	return false
}

// Turn is one unit of generated narrative plus the player's choice that led
// to it. Plot and Prose are the running summary and full story after the turn.
type Turn struct {
	Number      int       `json:"number" yaml:"number"`
	Offered     []Choice  `json:"offered,omitempty" yaml:"offered,omitempty"`
	Action      string    `json:"action" yaml:"action"`
	Custom      bool      `json:"custom,omitempty" yaml:"custom,omitempty"`
	Consequence string    `json:"consequence" yaml:"consequence"`
	Plot        string    `json:"plot" yaml:"plot"`
	Prose       string    `json:"prose" yaml:"prose"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

func (t Turn) clone() Turn {
	if t.Offered != nil {
		offered := make([]Choice, len(t.Offered))
		copy(offered, t.Offered)
		t.Offered = offered
	}
	return t
}

// Question is a player question answered between turns.
type Question struct {
	AfterTurn int       `json:"after_turn" yaml:"after_turn"`
	Question  string    `json:"question" yaml:"question"`
	Answer    string    `json:"answer" yaml:"answer"`
	AskedAt   time.Time `json:"asked_at" yaml:"asked_at"`
}

// Revision is one entry of the memory change log.
type Revision struct {
	Version int       `json:"version" yaml:"version"`
	Key     string    `json:"key" yaml:"key"`
	At      time.Time `json:"at" yaml:"at"`
}
