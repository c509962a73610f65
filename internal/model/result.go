package model

import "time"

// Variable is a conversation variable captured in a result.
// Value is kept raw since bots may store strings, numbers or lists.
type Variable struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value,omitempty"`
}

// Result is a stored conversation of a bot.
type Result struct {
	ID        string     `json:"id"`
	TypebotID string     `json:"typebot_id"`
	Variables []Variable `json:"variables"`
	CreatedAt time.Time  `json:"created_at"`
}

// VariableValue returns the value of the first variable with the given name.
func (r *Result) VariableValue(name string) (any, bool) {
	for _, v := range r.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}
