package model

import "strings"

// TaskKey tags the kind of care a task represents. The column is a free
// string for legacy rows, so unknown keys are valid values; Known reports
// whether a key belongs to the fixed set below.
type TaskKey string

const (
	TaskWatering         TaskKey = "watering"
	TaskFertilizing      TaskKey = "fertilizing"
	TaskPruning          TaskKey = "pruning"
	TaskSpraying         TaskKey = "spraying"
	TaskSunlightRotation TaskKey = "sunlightRotation"
	TaskRepotting        TaskKey = "repotting"
	TaskCleaning         TaskKey = "cleaning"
)

var knownTaskKeys = map[TaskKey]string{
	TaskWatering:         "Watering",
	TaskFertilizing:      "Fertilizing",
	TaskPruning:          "Pruning",
	TaskSpraying:         "Misting",
	TaskSunlightRotation: "Sunlight rotation",
	TaskRepotting:        "Repotting",
	TaskCleaning:         "Leaf cleaning",
}

func ParseTaskKey(raw string) TaskKey {
	return TaskKey(strings.TrimSpace(raw))
}

func (k TaskKey) Known() bool {
	_, ok := knownTaskKeys[k]
	return ok
}

// Label returns the human label for a known key. For unknown keys it
// returns the raw key and false.
func (k TaskKey) Label() (string, bool) {
	if label, ok := knownTaskKeys[k]; ok {
		return label, true
	}
	return string(k), false
}

func (k TaskKey) String() string { return string(k) }
