package model

// Answers maps a question label to the respondent's answer. Values are
// whatever JSON decoding produces: string, float64, bool, []any or
// map[string]any.
type Answers map[string]any

func (a Answers) Empty() bool {
	return len(a) == 0
}

// Result is the body both the relay and the fallback handlers answer with.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
