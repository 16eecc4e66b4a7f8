// Package tasting generates and rewrites wine tasting notes with the AI text endpoints.
package tasting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/openai"
	"github.com/hyperjump/sommelier/internal/validation"
	"go.uber.org/zap"
)

var (
	ErrMissingPrompt       = errors.New("prompt is required")
	ErrMissingTastingNotes = errors.New("tasting notes are required")
	ErrMissingNotes        = errors.New("notes are required")
)

// Completer is the subset of the AI client the service calls.
type Completer interface {
	Complete(ctx context.Context, req openai.CompletionRequest) (*openai.CompletionResponse, error)
	Chat(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error)
	Edit(ctx context.Context, req openai.EditRequest) (*openai.EditResponse, error)
}

// Models names the model used by each operation.
type Models struct {
	Completion string
	Reimagine  string
	Chat       string
	Edit       string
}

// choices is the number of alternatives requested from every endpoint.
const choices = 3

const criticPrompt = `You're an experienced and influential wine critic. You have extensive tasting experience, a refined palate and can communicate the many characteristics of a wine. You write consistent tasting notes which describe the specific features and flavours of a wine.

Some rules to follow:
Don't output word counts
Don't name the wine unless it's provided
Don't mention countries, regions, grape varieties etc., unless they have been provided`

// Service builds prompts and forwards them to the AI API.
type Service struct {
	client Completer
	models Models
	logger *zap.Logger
}

// NewService creates a tasting-note generator.
func NewService(client Completer, models Models, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, models: models, logger: logger}
}

// Complete continues prompt with the fine-tuned tasting-note model.
func (s *Service) Complete(ctx context.Context, prompt string) (*openai.CompletionResponse, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrMissingPrompt
	}
	return s.client.Complete(ctx, openai.CompletionRequest{
		Model:            s.models.Completion,
		Prompt:           prompt,
		Temperature:      0.9,
		MaxTokens:        80,
		TopP:             1,
		FrequencyPenalty: 1,
		N:                choices,
	})
}

// ReimaginePrompt wraps existing notes in the embellishment instruction.
func ReimaginePrompt(notes string) string {
	return "REIMAGINE AND EMBELLISH the following TASTING NOTE using creative language\n\n" +
		"TASTING NOTE: " + strings.TrimSpace(notes) + "\n\n" +
		"REIMAGINE AND EMBELLISH:"
}

// Reimagine asks for embellished rewrites of notes.
func (s *Service) Reimagine(ctx context.Context, notes string) (*openai.CompletionResponse, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrMissingTastingNotes
	}
	return s.client.Complete(ctx, openai.CompletionRequest{
		Model:            s.models.Reimagine,
		Prompt:           ReimaginePrompt(notes),
		Temperature:      0.9,
		MaxTokens:        128,
		TopP:             1,
		FrequencyPenalty: 1.75,
		N:                choices,
	})
}

// ChatMessages builds the critic conversation. Wine details, when given, precede the notes.
func ChatMessages(notes string, wine *models.WineInput) []openai.ChatMessage {
	msgs := []openai.ChatMessage{{Role: "system", Content: criticPrompt}}
	if wine != nil {
		msgs = append(msgs,
			openai.ChatMessage{Role: "user", Content: fmt.Sprintf(
				"Here are some details about the wine we're reviewing:\n\n"+
					"name: %s\nstyle: %s\ncountry: %s\nregion: %s\nvineyard: %s\nvintage: %d\nscore: %g\nflavours: %s",
				wine.Name, wine.Style, wine.Country, wine.Region, wine.Vineyard, wine.Vintage, wine.Score,
				strings.Join(wine.FlavourProfile, ", "),
			)},
			openai.ChatMessage{Role: "assistant", Content: "Thank you, I have the details about the wine."},
		)
	}
	return append(msgs, openai.ChatMessage{
		Role: "user",
		Content: "Write tasting notes from the following description for a review in a wine magazine, " +
			"be sure to keep it under the 100-word limit.\n\n" + notes,
	})
}

// Chat turns rough notes into magazine tasting notes. userID is forwarded for abuse tracking.
func (s *Service) Chat(ctx context.Context, notes string, wine *models.WineInput, userID string) (*openai.ChatResponse, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, ErrMissingNotes
	}
	if wine != nil {
		if err := validation.Struct(wine); err != nil {
			return nil, err
		}
	}
	return s.client.Chat(ctx, openai.ChatRequest{
		Model:            s.models.Chat,
		Messages:         ChatMessages(notes, wine),
		Temperature:      0.9,
		TopP:             1,
		FrequencyPenalty: 1,
		N:                choices,
		User:             userID,
	})
}

// Edit rewrites input following instruction.
func (s *Service) Edit(ctx context.Context, input, instruction string) (*openai.EditResponse, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrMissingPrompt
	}
	return s.client.Edit(ctx, openai.EditRequest{
		Model:       s.models.Edit,
		Input:       input,
		Instruction: instruction,
		Temperature: 0.9,
		TopP:        1,
		N:           choices,
	})
}
