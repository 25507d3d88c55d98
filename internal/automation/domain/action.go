package domain

import "encoding/json"

// ActionKind is the closed set of automation actions.
type ActionKind string

const (
	ActionSendMessage     ActionKind = "send_message"
	ActionRaiseAlert      ActionKind = "raise_alert"
	ActionPauseAutomation ActionKind = "pause_automation"

	// ActionUnknown marks a kind this version does not understand.
	// Unknown actions are ignored at execution time, never an error.
	ActionUnknown ActionKind = "unknown"
)

// knownKinds is the closed action set.
var knownKinds = map[ActionKind]bool{
	ActionSendMessage:     true,
	ActionRaiseAlert:      true,
	ActionPauseAutomation: true,
}

// Action is one step of a rule's action list.
type Action struct {
	Kind ActionKind `json:"kind"`
	// RawKind preserves the stored kind when Kind is ActionUnknown, so
	// saving the rule back does not clobber it.
	RawKind string         `json:"-"`
	Params  map[string]any `json:"params,omitempty"`
}

// IsKnown reports whether this version can execute the action.
func (a Action) IsKnown() bool {
	return knownKinds[a.Kind]
}

// UnmarshalJSON folds unrecognized kinds into ActionUnknown so stored
// rules written by a newer version still load.
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind   string         `json:"kind"`
		Params map[string]any `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind := ActionKind(raw.Kind)
	if !knownKinds[kind] {
		a.RawKind = raw.Kind
		kind = ActionUnknown
	}
	a.Kind = kind
	a.Params = raw.Params
	return nil
}

// MarshalJSON writes the preserved raw kind for unknown actions.
func (a Action) MarshalJSON() ([]byte, error) {
	kind := string(a.Kind)
	if a.Kind == ActionUnknown && a.RawKind != "" {
		kind = a.RawKind
	}
	return json.Marshal(struct {
		Kind   string         `json:"kind"`
		Params map[string]any `json:"params,omitempty"`
	}{Kind: kind, Params: a.Params})
}
