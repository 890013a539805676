package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// decodeModelJSON parses a JSON object out of model output, tolerating
// markdown code fences and surrounding prose.
func decodeModelJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return fmt.Errorf("no JSON object in model output")
	}

	return json.Unmarshal([]byte(s[start:end+1]), v)
}
