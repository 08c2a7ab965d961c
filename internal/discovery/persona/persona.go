// internal/discovery/persona/persona.go
package persona

import "fmt"

// Persona selects the prompt, safety messaging and defaults of an endpoint.
type Persona string

const (
	Crisis          Persona = "crisis"
	CrisisEmergency Persona = "crisis-emergency"
	Reentry         Persona = "reentry"
	Victim          Persona = "victim"
	General         Persona = "general"
	Coach           Persona = "coach"
)

var all = []Persona{Crisis, CrisisEmergency, Reentry, Victim, General, Coach}

// All returns every known persona.
func All() []Persona {
	out := make([]Persona, len(all))
	copy(out, all)
	return out
}

// Parse converts a registry value into a Persona.
func Parse(s string) (Persona, error) {
	for _, p := range all {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

func (p Persona) String() string { return string(p) }

// SafetyCritical reports whether the persona serves people who may be in danger.
func (p Persona) SafetyCritical() bool {
	return p == Crisis || p == CrisisEmergency || p == Victim
}
