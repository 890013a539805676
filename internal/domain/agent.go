package domain

import "strings"

// AgentType identifies one of the fixed conversational personas.
type AgentType string

const (
	AgentDefault         AgentType = "default"
	AgentPreSales        AgentType = "preSales"
	AgentITConsultant    AgentType = "itConsultant"
	AgentSystemArchitect AgentType = "systemArchitect"
)

// AgentTypes lists every known persona.
func AgentTypes() []AgentType {
	return []AgentType{AgentDefault, AgentPreSales, AgentITConsultant, AgentSystemArchitect}
}

// Valid reports whether a is a known persona.
func (a AgentType) Valid() bool {
	switch a {
	case AgentDefault, AgentPreSales, AgentITConsultant, AgentSystemArchitect:
		return true
	}
	return false
}

func (a AgentType) String() string {
	return string(a)
}

// ParseAgentType matches s case-insensitively against the known persona set.
func ParseAgentType(s string) (AgentType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "default":
		return AgentDefault, true
	case "presales":
		return AgentPreSales, true
	case "itconsultant":
		return AgentITConsultant, true
	case "systemarchitect":
		return AgentSystemArchitect, true
	}
	return "", false
}

// NormalizeAgentType parses s and falls back to the default persona when the
// value is empty or unknown. Invalid personas never cross the input boundary.
func NormalizeAgentType(s string) AgentType {
	if a, ok := ParseAgentType(s); ok {
		return a
	}
	return AgentDefault
}
