package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nagomi-art/nagomi/internal/models"
)

func TestRecipePrompt(t *testing.T) {
	prompt := RecipePrompt("melancholic and tired")
	if !strings.Contains(prompt, "melancholic and tired") {
		t.Errorf("prompt does not embed the mood: %q", prompt)
	}
	if !strings.Contains(prompt, "art therapist") {
		t.Errorf("prompt lost the therapist framing: %q", prompt)
	}
	if !strings.Contains(prompt, "comma-separated keywords") {
		t.Errorf("prompt does not request keywords: %q", prompt)
	}
}

func TestExplanationPrompt(t *testing.T) {
	meta := models.Metadata{
		Author:   "Salvador Dali",
		Title:    "The persistence of memory",
		Year:     "1931",
		Movement: "Surrealism",
	}
	prompt := ExplanationPrompt("anxious", meta)
	for _, want := range []string{"anxious", "Salvador Dali", "The persistence of memory", "1931", "Surrealism"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q: %q", want, prompt)
		}
	}
}

func TestExplanationPromptFallbackMetadata(t *testing.T) {
	prompt := ExplanationPrompt("calm", models.Metadata{Fallback: true})
	if !strings.Contains(prompt, "Unknown") {
		t.Errorf("empty author should render as Unknown: %q", prompt)
	}
	if !strings.Contains(prompt, "Untitled") {
		t.Errorf("empty title should render as Untitled: %q", prompt)
	}
	if !strings.Contains(prompt, "N/A") {
		t.Errorf("empty movement should render as N/A: %q", prompt)
	}
}

func TestMockGenerator(t *testing.T) {
	t.Run("substring match", func(t *testing.T) {
		mock := &MockGenerator{
			Responses: map[string]string{"art therapist": "calm, golden, serene"},
			Fallback:  "fallback",
		}
		got, err := mock.Generate(context.Background(), RecipePrompt("stressed"))
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != "calm, golden, serene" {
			t.Errorf("got %q", got)
		}
		if len(mock.Prompts) != 1 {
			t.Errorf("recorded %d prompts, want 1", len(mock.Prompts))
		}
	})

	t.Run("fallback", func(t *testing.T) {
		mock := &MockGenerator{Fallback: "fallback"}
		got, err := mock.Generate(context.Background(), "no match here")
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != "fallback" {
			t.Errorf("got %q, want fallback", got)
		}
	})

	t.Run("error", func(t *testing.T) {
		boom := errors.New("boom")
		mock := &MockGenerator{Err: boom}
		if _, err := mock.Generate(context.Background(), "x"); !errors.Is(err, boom) {
			t.Errorf("got err %v, want boom", err)
		}
	})
}
