package models

// RecommendationRequest is the body of a recommendation query.
type RecommendationRequest struct {
	Query string `json:"query"`
}

// CompletionRequest asks for tasting notes continuing a prompt.
type CompletionRequest struct {
	Prompt string `json:"prompt"`
}

// ReimagineRequest asks for an embellished rewrite of existing tasting notes.
type ReimagineRequest struct {
	TastingNotes string `json:"tastingNotes"`
}

// ChatRequest asks for magazine-style tasting notes from rough notes, optionally with
// the details of the wine being reviewed.
type ChatRequest struct {
	Notes string     `json:"notes"`
	Wine  *WineInput `json:"wine,omitempty"`
}

// EditRequest asks for input to be rewritten following instruction.
type EditRequest struct {
	Input       string `json:"input"`
	Instruction string `json:"instruction"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}
