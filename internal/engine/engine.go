// Package engine turns a free-text mood into a single artwork recommendation.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nagomi-art/nagomi/internal/collection"
	"github.com/nagomi-art/nagomi/internal/encoder"
	"github.com/nagomi-art/nagomi/internal/generate"
	"github.com/nagomi-art/nagomi/internal/models"
	"github.com/nagomi-art/nagomi/internal/session"
	"github.com/nagomi-art/nagomi/pkg/utils"
)

const (
	defaultTopK              = 5
	defaultRecipeMaxKeywords = 7
)

// Engine runs the recipe -> embed -> retrieve -> explain pipeline.
type Engine struct {
	generator         generate.Generator
	encoder           encoder.Encoder
	collection        collection.Collection
	topK              int
	recipeMaxKeywords int
	logger            *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithTopK sets how many nearest neighbors are fetched per query.
func WithTopK(k int) Option {
	return func(e *Engine) {
		if k > 0 {
			e.topK = k
		}
	}
}

// WithRecipeMaxKeywords caps the number of keywords kept from a recipe.
func WithRecipeMaxKeywords(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.recipeMaxKeywords = n
		}
	}
}

// New creates an engine over the given generator, encoder and collection.
func New(gen generate.Generator, enc encoder.Encoder, coll collection.Collection, opts ...Option) *Engine {
	e := &Engine{
		generator:         gen,
		encoder:           enc,
		collection:        coll,
		topK:              defaultTopK,
		recipeMaxKeywords: defaultRecipeMaxKeywords,
		logger:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RecipeForMood asks the generator for the visual-antidote keywords and
// normalizes them into a single comma-separated query string. An empty or
// whitespace-only generation yields "".
func (e *Engine) RecipeForMood(ctx context.Context, mood string) (string, error) {
	raw, err := e.generator.Generate(ctx, generate.RecipePrompt(mood))
	if err != nil {
		return "", fmt.Errorf("recipe generation: %w", err)
	}

	var keywords []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		keywords = append(keywords, part)
		if len(keywords) == e.recipeMaxKeywords {
			break
		}
	}
	return strings.Join(keywords, ", "), nil
}

// Recommend returns one artwork matching the mood, skipping anything already
// recorded in the exclusion set. A nil, nil return means no candidate is left;
// it is not an error. The exclusion set is owned by the caller and never
// mutated here.
func (e *Engine) Recommend(ctx context.Context, mood string, exclusions *session.Exclusions) (*models.Recommendation, error) {
	recipe, err := e.RecipeForMood(ctx, mood)
	if err != nil {
		return nil, err
	}
	if recipe == "" {
		e.logger.Warn("empty recipe for mood", zap.String("mood", mood))
		return nil, nil
	}
	e.logger.Debug("recipe generated",
		zap.String("mood", utils.Truncate(mood, 120)),
		zap.String("recipe", recipe))

	vector, err := e.encoder.EncodeText(ctx, recipe)
	if err != nil {
		return nil, fmt.Errorf("encode recipe: %w", err)
	}

	matches, err := e.collection.Query(ctx, vector, e.topK)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	var chosen *collection.Match
	for _, m := range matches {
		if exclusions != nil && exclusions.Contains(m.ID) {
			continue
		}
		chosen = m
		break
	}
	if chosen == nil {
		e.logger.Info("no unseen candidate in top results",
			zap.Int("candidates", len(matches)))
		return nil, nil
	}

	explanation, err := e.generator.Generate(ctx, generate.ExplanationPrompt(mood, chosen.Metadata))
	if err != nil {
		return nil, fmt.Errorf("explanation generation: %w", err)
	}

	return &models.Recommendation{
		Artwork: models.Artwork{
			Path:     chosen.ID,
			Metadata: chosen.Metadata,
		},
		Recipe:      recipe,
		Explanation: strings.TrimSpace(explanation),
	}, nil
}
