package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"plant-care/internal/model"
)

// LabelLookup maps a task key to its human label. ok is false when the
// key is unknown; the returned label is then the raw key.
type LabelLookup interface {
	Label(key model.TaskKey) (label string, ok bool)
}

// DefaultLabels serves the built-in labels with optional overrides.
type DefaultLabels map[model.TaskKey]string

func (l DefaultLabels) Label(key model.TaskKey) (string, bool) {
	if label, ok := l[key]; ok && strings.TrimSpace(label) != "" {
		return label, true
	}
	return key.Label()
}

type personaTemplate struct {
	title string // label, plant
	body  string // label (lowercase), plant
}

var personaTemplates = map[string]personaTemplate{
	"": {
		title: "%s reminder",
		body:  "Time for %s: %s is waiting for you.",
	},
	"plant": {
		title: "%s, please! 🌱",
		body:  "Hi, it's %[2]s. I could really use some %[1]s today.",
	},
	"coach": {
		title: "%s due",
		body:  "Keep the streak alive: %s for %s is overdue.",
	},
}

// NotificationPayload is what gets sent and what gets logged. TaskID is a
// string so the serialized form contains an exact "taskId":"<id>" fragment.
type NotificationPayload struct {
	TaskID  string `json:"taskId"`
	PlantID string `json:"plantId"`
	TaskKey string `json:"taskKey"`
	Title   string `json:"title"`
	Body    string `json:"body"`
	DueOn   string `json:"dueOn"`
}

// DedupFragment is the substring that identifies a task inside a logged payload.
func DedupFragment(taskID uint) string {
	return fmt.Sprintf(`"taskId":"%d"`, taskID)
}

// BuildPayload renders the notification for a task in the user's persona.
func BuildPayload(task OverdueTask, labels LabelLookup) NotificationPayload {
	label, _ := labels.Label(task.TaskKey)
	if strings.TrimSpace(label) == "" {
		label = "Plant care"
	}
	plant := task.PlantName
	if strings.TrimSpace(plant) == "" {
		plant = model.FallbackPlantName
	}

	tmpl, ok := personaTemplates[strings.ToLower(strings.TrimSpace(task.Persona))]
	if !ok {
		tmpl = personaTemplates[""]
	}

	return NotificationPayload{
		TaskID:  strconv.FormatUint(uint64(task.TaskID), 10),
		PlantID: strconv.FormatUint(uint64(task.PlantID), 10),
		TaskKey: task.TaskKey.String(),
		Title:   fmt.Sprintf(tmpl.title, label),
		Body:    fmt.Sprintf(tmpl.body, strings.ToLower(label), plant),
		DueOn:   task.NextDueOn.UTC().Format(time.RFC3339),
	}
}

func (p NotificationPayload) JSON() ([]byte, error) {
	return json.Marshal(p)
}

// Data is the key/value map attached to the push message.
func (p NotificationPayload) Data() map[string]string {
	return map[string]string{
		"taskId":  p.TaskID,
		"plantId": p.PlantID,
		"taskKey": p.TaskKey,
		"dueOn":   p.DueOn,
	}
}
