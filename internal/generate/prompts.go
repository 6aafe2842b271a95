package generate

import (
	"fmt"

	"github.com/nagomi-art/nagomi/internal/models"
)

// RecipePrompt asks for a comma-separated keyword list describing the visual
// antidote to the given mood.
func RecipePrompt(mood string) string {
	return fmt.Sprintf(
		"You are an art therapist. A user is feeling: '%s'. "+
			"Respond with a list of up to 10 comma-separated keywords "+
			"that describe the visual antidote.", mood)
}

// ExplanationPrompt asks for a short empathetic explanation of why the chosen
// artwork suits the mood.
func ExplanationPrompt(mood string, meta models.Metadata) string {
	author := meta.Author
	if author == "" {
		author = "Unknown"
	}
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	movement := meta.Movement
	if movement == "" {
		movement = "N/A"
	}
	return fmt.Sprintf(
		"You are an empathetic and concise art critic. "+
			"A user is feeling '%s'. The chosen artwork for them is "+
			"'%s' (%s) by %s, from the %s movement. "+
			"Write a personal and touching explanation (2-3 sentences max), "+
			"without repeating the info you already know.",
		mood, title, meta.Year, author, movement)
}
