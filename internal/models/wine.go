// Package models defines core data structures for wines, tasting notes and API requests.
package models

import "time"

// Wine is a wine-list entry owned by a user. UserID and SK form its key.
type Wine struct {
	UserID         string    `json:"userId"`
	SK             string    `json:"sk"`
	Name           string    `json:"name"`
	Style          string    `json:"style"`
	Country        string    `json:"country"`
	Region         string    `json:"region"`
	Vineyard       string    `json:"vineyard"`
	Vintage        int       `json:"vintage"`
	Score          float64   `json:"score"`
	FlavourProfile []string  `json:"flavourProfile"`
	DetailPrompt   string    `json:"detailPrompt,omitempty"`
	StarterText    string    `json:"starterText,omitempty"`
	TastingNote    string    `json:"tastingNote,omitempty"`
	TastingNoteSK  string    `json:"tastingNoteSk,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// WineInput is the body for creating or replacing a wine.
type WineInput struct {
	Name           string   `json:"name" validate:"required"`
	Style          string   `json:"style" validate:"required"`
	Country        string   `json:"country" validate:"required"`
	Region         string   `json:"region" validate:"required"`
	Vineyard       string   `json:"vineyard" validate:"required"`
	Vintage        int      `json:"vintage" validate:"required,vintage"`
	Score          float64  `json:"score" validate:"gte=0,lte=100"`
	FlavourProfile []string `json:"flavourProfile" validate:"required,dive,required"`
	DetailPrompt   string   `json:"detailPrompt,omitempty"`
	StarterText    string   `json:"starterText,omitempty"`
	TastingNote    string   `json:"tastingNote,omitempty"`
}

// Apply copies the input fields onto w, leaving keys and timestamps untouched.
func (in *WineInput) Apply(w *Wine) {
	w.Name = in.Name
	w.Style = in.Style
	w.Country = in.Country
	w.Region = in.Region
	w.Vineyard = in.Vineyard
	w.Vintage = in.Vintage
	w.Score = in.Score
	w.FlavourProfile = in.FlavourProfile
	w.DetailPrompt = in.DetailPrompt
	w.StarterText = in.StarterText
	w.TastingNote = in.TastingNote
}

// TastingNote is a note attached to a wine, stored with both of its embeddings.
// Its SK is "<wine sk>_NOTE#<id>".
type TastingNote struct {
	UserID              string    `json:"userId"`
	SK                  string    `json:"sk"`
	WineSK              string    `json:"wineSk"`
	Text                string    `json:"text"`
	SimilarityEmbedding []float64 `json:"-"`
	SearchEmbedding     []float64 `json:"-"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// TastingNoteInput is the body for adding a tasting note.
type TastingNoteInput struct {
	Text string `json:"text" validate:"required"`
}

// SelectTastingNoteInput picks the current tasting note of a wine.
type SelectTastingNoteInput struct {
	TastingNoteSK string `json:"tastingNoteSk" validate:"required"`
}
