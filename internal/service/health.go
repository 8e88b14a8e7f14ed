package service

import (
	"time"

	"plant-care/internal/model"
)

const maxHealthScore = 100

// Badge is a streak tier shown on a plant's public page.
type Badge struct {
	Tier      string
	Threshold int
	Text      string
}

// badges is ordered from the highest threshold down.
var badges = []Badge{
	{Tier: "legendary", Threshold: 100, Text: "🏆 Legendary caretaker"},
	{Tier: "evergreen", Threshold: 60, Text: "🌳 Evergreen"},
	{Tier: "green_thumb", Threshold: 30, Text: "🌿 Green thumb"},
	{Tier: "sprout", Threshold: 7, Text: "🌱 Sprout"},
	{Tier: "seedling", Threshold: 0, Text: "🫘 Seedling"},
}

// daysOverdue counts full calendar days the task is past due in loc.
// A task due today, or not yet due, is 0.
func daysOverdue(task model.Task, now time.Time, loc *time.Location) int {
	if !task.Active {
		return 0
	}
	days := calendarDaysBetween(task.NextDueOn, now, loc)
	if days < 0 {
		return 0
	}
	return days
}

// HealthScore starts at 100 and loses one point per calendar day each
// active task is overdue. It never drops below 0.
func HealthScore(tasks []model.Task, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	score := maxHealthScore
	for _, task := range tasks {
		score -= daysOverdue(task, now, loc)
		if score <= 0 {
			return 0
		}
	}
	return score
}

// CareStreak is a coarse count of consecutive cared-for days. There is
// no per-day completion history, so any overdue active task resets it to 1.
func CareStreak(plantCreatedAt time.Time, tasks []model.Task, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	if len(tasks) == 0 {
		return 0
	}
	sinceCreation := calendarDaysBetween(plantCreatedAt, now, loc)
	if sinceCreation <= 0 {
		return 1
	}
	for _, task := range tasks {
		if task.IsOverdue(now) {
			return 1
		}
	}
	return sinceCreation + 1
}

// BadgeFor returns the highest tier whose threshold the streak reaches.
func BadgeFor(streak int) Badge {
	for _, b := range badges {
		if streak >= b.Threshold {
			return b
		}
	}
	return badges[len(badges)-1]
}
