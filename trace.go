package opts

import (
	"encoding/json"
)

// Trace captures provenance for one option field: every fragment that tried
// to set it, in the order they were applied.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how one fragment contributed to a traced field.
type Provenance struct {
	Origin  string `json:"origin"`
	Value   any    `json:"value,omitempty"`
	Applied bool   `json:"applied"`
}

// Effective returns the provenance of the value currently in effect.
func (t Trace) Effective() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Applied {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}
