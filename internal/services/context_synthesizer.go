package services

import (
	"fmt"
	"sort"
	"strings"

	"companion/internal/models"
)

// Summary bounds
const (
	maxSummaryValues  = 3
	maxSummaryGoals   = 3
	maxSummaryVisions = 3
)

const personalizationInstruction = "Use this information to personalize your guidance, reference their values and goals where relevant, and keep your advice consistent with where they are in their journey."

// SynthesizeContext turns the four history reads into a bounded summary.
// Sources are rendered in fixed order (values, goals, reflections, visions)
// and a sentence is only emitted for data that is present. Unavailable
// sources are treated as empty.
func SynthesizeContext(insights models.UserInsights) models.ContextSummary {
	var sentences []string

	if s := summarizeValues(insights.Values.Rows); s != "" {
		sentences = append(sentences, s)
	}
	sentences = append(sentences, summarizeGoals(insights.Goals.Rows)...)
	sentences = append(sentences, summarizeReflection(insights.Reflections.Rows)...)
	if s := summarizeVisions(insights.Visions.Rows); s != "" {
		sentences = append(sentences, s)
	}

	if len(sentences) == 0 {
		return models.ContextSummary{}
	}

	sentences = append(sentences, personalizationInstruction)
	return models.ContextSummary{
		HasData: true,
		Text:    strings.Join(sentences, " "),
	}
}

func summarizeValues(values []models.ValueRating) string {
	ranked := make([]models.ValueRating, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v.ValueName) != "" {
			ranked = append(ranked, v)
		}
	}
	if len(ranked) == 0 {
		return ""
	}

	// Stable: equal ratings keep their read order (most recent first)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rating > ranked[j].Rating
	})
	if len(ranked) > maxSummaryValues {
		ranked = ranked[:maxSummaryValues]
	}

	parts := make([]string, 0, len(ranked))
	for _, v := range ranked {
		parts = append(parts, fmt.Sprintf("%s (rated %d/5)", strings.TrimSpace(v.ValueName), v.Rating))
	}
	return fmt.Sprintf("The user's top core values are: %s.", strings.Join(parts, ", "))
}

func summarizeGoals(goals []models.Goal) []string {
	if len(goals) == 0 {
		return nil
	}

	var active []string
	completed := 0
	for _, g := range goals {
		switch g.Status {
		case models.GoalStatusActive:
			if title := strings.TrimSpace(g.Title); title != "" {
				active = append(active, title)
			}
		case models.GoalStatusCompleted:
			completed++
		}
	}

	var sentences []string
	if len(active) > 0 {
		if len(active) > maxSummaryGoals {
			active = active[:maxSummaryGoals]
		}
		sentences = append(sentences, fmt.Sprintf("Current active goals: %s.", strings.Join(active, ", ")))
	}
	if completed > 0 {
		noun := "goals"
		if completed == 1 {
			noun = "goal"
		}
		sentences = append(sentences, fmt.Sprintf("They have completed %d %s recently.", completed, noun))
	}
	return sentences
}

func summarizeReflection(reflections []models.DailyReflection) []string {
	if len(reflections) == 0 {
		return nil
	}

	// Rows arrive newest first; only the latest reflection is used
	latest := reflections[0]

	var sentences []string
	if mood := strings.TrimSpace(latest.Mood); mood != "" {
		sentences = append(sentences, fmt.Sprintf("In their most recent reflection, they described their mood as %s.", trimTrailingPeriod(mood)))
	}
	if acc := strings.TrimSpace(latest.Accomplishment); acc != "" {
		sentences = append(sentences, fmt.Sprintf("They recently accomplished: %s.", trimTrailingPeriod(acc)))
	}
	if ch := strings.TrimSpace(latest.Challenge); ch != "" {
		sentences = append(sentences, fmt.Sprintf("A current challenge they face: %s.", trimTrailingPeriod(ch)))
	}
	return sentences
}

func summarizeVisions(visions []models.VisionItem) string {
	var titles []string
	for _, v := range visions {
		if len(titles) == maxSummaryVisions {
			break
		}
		if title := strings.TrimSpace(v.Title); title != "" {
			titles = append(titles, title)
		}
	}
	if len(titles) == 0 {
		return ""
	}
	return fmt.Sprintf("Vision board aspirations: %s.", strings.Join(titles, ", "))
}

func trimTrailingPeriod(s string) string {
	return strings.TrimRight(s, ".")
}
