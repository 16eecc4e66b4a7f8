package tasting

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/openai"
	"github.com/hyperjump/sommelier/internal/validation"
)

type recordingClient struct {
	completion *openai.CompletionRequest
	chat       *openai.ChatRequest
	edit       *openai.EditRequest
	err        error
}

func (r *recordingClient) Complete(ctx context.Context, req openai.CompletionRequest) (*openai.CompletionResponse, error) {
	r.completion = &req
	if r.err != nil {
		return nil, r.err
	}
	return &openai.CompletionResponse{Choices: []openai.CompletionChoice{{Text: "plum"}}}, nil
}

func (r *recordingClient) Chat(ctx context.Context, req openai.ChatRequest) (*openai.ChatResponse, error) {
	r.chat = &req
	return &openai.ChatResponse{}, r.err
}

func (r *recordingClient) Edit(ctx context.Context, req openai.EditRequest) (*openai.EditResponse, error) {
	r.edit = &req
	return &openai.EditResponse{}, r.err
}

var testModels = Models{Completion: "ft", Reimagine: "rm", Chat: "chat", Edit: "edit"}

func TestService_Complete(t *testing.T) {
	client := &recordingClient{}
	svc := NewService(client, testModels, nil)
	if _, err := svc.Complete(context.Background(), "Deep ruby"); err != nil {
		t.Fatal(err)
	}
	req := client.completion
	if req.Model != "ft" || req.Prompt != "Deep ruby" || req.N != 3 || req.MaxTokens != 80 {
		t.Errorf("request = %+v", req)
	}
}

func TestService_Reimagine(t *testing.T) {
	client := &recordingClient{}
	svc := NewService(client, testModels, nil)
	if _, err := svc.Reimagine(context.Background(), "  cherry, oak "); err != nil {
		t.Fatal(err)
	}
	req := client.completion
	if req.Model != "rm" || req.MaxTokens != 128 || req.FrequencyPenalty != 1.75 {
		t.Errorf("request = %+v", req)
	}
	if !strings.Contains(req.Prompt, "TASTING NOTE: cherry, oak\n\n") || !strings.HasSuffix(req.Prompt, "REIMAGINE AND EMBELLISH:") {
		t.Errorf("prompt = %q", req.Prompt)
	}
}

func TestService_Chat(t *testing.T) {
	client := &recordingClient{}
	svc := NewService(client, testModels, nil)

	if _, err := svc.Chat(context.Background(), "grippy, dark fruit", nil, "u1"); err != nil {
		t.Fatal(err)
	}
	if len(client.chat.Messages) != 2 || client.chat.User != "u1" || client.chat.N != 3 {
		t.Errorf("request without wine = %+v", client.chat)
	}

	wine := &models.WineInput{
		Name: "Etna Rosso", Style: "red", Country: "Italy", Region: "Sicily", Vineyard: "Calderara",
		Vintage: 2018, Score: 93, FlavourProfile: []string{"ash", "red cherry"},
	}
	if _, err := svc.Chat(context.Background(), "volcanic", wine, "u1"); err != nil {
		t.Fatal(err)
	}
	msgs := client.chat.Messages
	if len(msgs) != 4 || msgs[2].Role != "assistant" {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(msgs[1].Content, "flavours: ash, red cherry") || !strings.Contains(msgs[1].Content, "vintage: 2018") {
		t.Errorf("wine details = %q", msgs[1].Content)
	}
	if !strings.HasSuffix(msgs[3].Content, "volcanic") {
		t.Errorf("last message = %q", msgs[3].Content)
	}
}

func TestService_Chat_invalidWine(t *testing.T) {
	svc := NewService(&recordingClient{}, testModels, nil)
	_, err := svc.Chat(context.Background(), "notes", &models.WineInput{Name: "x"}, "")
	var verr *validation.Error
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want *validation.Error", err)
	}
}

func TestService_missingInput(t *testing.T) {
	svc := NewService(&recordingClient{}, testModels, nil)
	ctx := context.Background()
	if _, err := svc.Complete(ctx, " "); !errors.Is(err, ErrMissingPrompt) {
		t.Errorf("Complete err = %v", err)
	}
	if _, err := svc.Reimagine(ctx, ""); !errors.Is(err, ErrMissingTastingNotes) {
		t.Errorf("Reimagine err = %v", err)
	}
	if _, err := svc.Chat(ctx, "", nil, ""); !errors.Is(err, ErrMissingNotes) {
		t.Errorf("Chat err = %v", err)
	}
	if _, err := svc.Edit(ctx, "", "shorter"); !errors.Is(err, ErrMissingPrompt) {
		t.Errorf("Edit err = %v", err)
	}
}

func TestService_Edit(t *testing.T) {
	client := &recordingClient{}
	svc := NewService(client, testModels, nil)
	if _, err := svc.Edit(context.Background(), "Tart red fruit.", "Make it lyrical"); err != nil {
		t.Fatal(err)
	}
	if client.edit.Model != "edit" || client.edit.Instruction != "Make it lyrical" || client.edit.N != 3 {
		t.Errorf("request = %+v", client.edit)
	}
}

func TestService_upstreamError(t *testing.T) {
	client := &recordingClient{err: openai.ErrRequest}
	svc := NewService(client, testModels, nil)
	if _, err := svc.Complete(context.Background(), "x"); !errors.Is(err, openai.ErrRequest) {
		t.Errorf("err = %v, want ErrRequest", err)
	}
}
