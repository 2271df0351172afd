package viewport

import (
	"encoding/json"
	"fmt"
)

// SelectionKind tags the variant held by a Selection.
type SelectionKind int

const (
	SelectNone SelectionKind = iota
	SelectPin
	SelectCluster
)

func (k SelectionKind) String() string {
	switch k {
	case SelectPin:
		return "pin"
	case SelectCluster:
		return "cluster"
	default:
		return "none"
	}
}

// Selection is either nothing, one selected pin, or one expanded cluster.
// Fields are unexported so a pin and a cluster can never be held at once.
type Selection struct {
	kind SelectionKind
	id   string
}

func None() Selection { return Selection{} }

func SelectedPin(id string) Selection {
	if id == "" {
		return None()
	}
	return Selection{kind: SelectPin, id: id}
}

func ExpandedCluster(id string) Selection {
	if id == "" {
		return None()
	}
	return Selection{kind: SelectCluster, id: id}
}

func (s Selection) Kind() SelectionKind { return s.kind }

func (s Selection) IsNone() bool { return s.kind == SelectNone }

// PinID returns the selected pin id, if a pin is selected.
func (s Selection) PinID() (string, bool) {
	if s.kind != SelectPin {
		return "", false
	}
	return s.id, true
}

// ClusterID returns the expanded cluster id, if a cluster is expanded.
func (s Selection) ClusterID() (string, bool) {
	if s.kind != SelectCluster {
		return "", false
	}
	return s.id, true
}

type selectionJSON struct {
	Kind string `json:"kind"`
	ID   string `json:"id,omitempty"`
}

func (s Selection) MarshalJSON() ([]byte, error) {
	return json.Marshal(selectionJSON{Kind: s.kind.String(), ID: s.id})
}

func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw selectionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case "", "none":
		*s = None()
	case "pin":
		*s = SelectedPin(raw.ID)
	case "cluster":
		*s = ExpandedCluster(raw.ID)
	default:
		return fmt.Errorf("unknown selection kind %q", raw.Kind)
	}
	return nil
}
