package custody

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is one of the four ordered checkpoints in a batch's custody chain.
type Stage int

const (
	StageCollector Stage = iota
	StageMiddleman
	StageLab
	StageManufacturer
)

// Stages lists every stage in write order.
var Stages = []Stage{StageCollector, StageMiddleman, StageLab, StageManufacturer}

var stageNames = [...]string{"collector", "middleman", "lab", "manufacturer"}

// Valid reports whether s names a defined stage.
func (s Stage) Valid() bool {
	return s >= StageCollector && s <= StageManufacturer
}

func (s Stage) String() string {
	if !s.Valid() {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// Title is the capitalised stage name used in event kinds.
func (s Stage) Title() string {
	name := s.String()
	return strings.ToUpper(name[:1]) + name[1:]
}

// EventKind names the notification emitted when s is recorded.
func (s Stage) EventKind() string {
	return s.Title() + "DataAdded"
}

// RoleBit returns the permission bit required to write s.
func (s Stage) RoleBit() Role {
	if !s.Valid() {
		return 0
	}
	return Role(1) << uint(s)
}

// Previous returns the stage that must already be recorded before s, and
// false for the collector stage which has no predecessor.
func (s Stage) Previous() (Stage, bool) {
	if s <= StageCollector || !s.Valid() {
		return 0, false
	}
	return s - 1, true
}

// Column returns the storage column prefix of the stage slot.
func (s Stage) Column() string {
	return s.String() + "_"
}

// ParseStage accepts a stage name ("lab") or its index ("2").
func ParseStage(v string) (Stage, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range stageNames {
		if name == v {
			return Stage(i), nil
		}
	}
	if n, err := strconv.Atoi(v); err == nil && Stage(n).Valid() {
		return Stage(n), nil
	}
	return 0, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, v)
}
