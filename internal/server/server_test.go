package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/hyperjump/sommelier/internal/config"
	"github.com/hyperjump/sommelier/internal/corpus"
	"github.com/hyperjump/sommelier/internal/embedding"
	"github.com/hyperjump/sommelier/internal/models"
	"github.com/hyperjump/sommelier/internal/openai"
	"github.com/hyperjump/sommelier/internal/recommend"
	"github.com/hyperjump/sommelier/internal/storage"
	"github.com/hyperjump/sommelier/internal/tasting"
	"github.com/hyperjump/sommelier/internal/winelist"
	"go.uber.org/zap"
)

const testDims = 6

var corpusNotes = []string{"cherry", "leather", "citrus", "butter", "smoke"}

type stringSource struct{ body string }

func (s stringSource) Fetch(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}

// buildCorpusCSV embeds each note with the mock embedder so that querying a note's own
// text ranks it first.
func buildCorpusCSV(t *testing.T, emb embedding.Embedder) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("0,curie_similarity,curie_search\n")
	for _, note := range corpusNotes {
		sim, _ := emb.Embed(context.Background(), note, embedding.ModelSimilarity)
		search, _ := emb.Embed(context.Background(), note, embedding.ModelSearch)
		simJSON, _ := json.Marshal(sim)
		searchJSON, _ := json.Marshal(search)
		fmt.Fprintf(&b, "%s,%q,%q\n", note, simJSON, searchJSON)
	}
	return b.String()
}

type testEnv struct {
	handler  http.Handler
	upstream *httptest.Server
	store    *storage.SQLiteStorage
}

func newTestEnv(t *testing.T, corpusBody string, k int) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	emb := embedding.NewMockEmbedder(testDims)
	if corpusBody == "" {
		corpusBody = buildCorpusCSV(t, emb)
	}

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/completions":
			_, _ = w.Write([]byte(`{"choices":[{"text":"Ripe plum","index":0},{"text":"Violets","index":1},{"text":"Cedar","index":2}]}`))
		case "/chat/completions":
			_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"Brooding"}}]}`))
		case "/edits":
			http.Error(w, "model retired", http.StatusNotFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)
	client, err := openai.NewClient(openai.Config{BaseURL: upstream.URL})
	if err != nil {
		t.Fatal(err)
	}

	loader := corpus.NewLoader(stringSource{body: corpusBody})
	srv := NewServer(
		recommend.NewService(loader, emb, recommend.WithK(k)),
		winelist.NewService(store, emb),
		tasting.NewService(client, tasting.Models{Completion: "ft", Reimagine: "rm", Chat: "gpt", Edit: "ed"}, logger),
		store,
		&config.ServerConfig{Host: "localhost", Port: 8080},
		logger,
	)
	return &testEnv{handler: srv.Router(), upstream: upstream, store: store}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out models.ErrorResponse
	decode(t, w, &out)
	return out.Error
}

func TestHandleRecommend(t *testing.T) {
	env := newTestEnv(t, "", 3)
	w := env.do(t, http.MethodPost, "/api/v1/recommendations", `{"query":"leather"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var res recommend.Result
	decode(t, w, &res)
	if len(res.Recommend) != 3 || len(res.Search) != 3 {
		t.Fatalf("result = %+v", res)
	}
	if res.Recommend[0] != "leather" || res.Search[0] != "leather" {
		t.Errorf("best match should be the note itself, got %+v", res)
	}
}

func TestHandleRecommend_errors(t *testing.T) {
	tests := []struct {
		name       string
		corpus     string
		k          int
		body       string
		wantStatus int
		wantCode   string
	}{
		{"missing query", "", 3, `{}`, http.StatusBadRequest, CodeMissingQuery},
		{"empty body", "", 3, "", http.StatusBadRequest, CodeMissingQuery},
		{"malformed body", "", 3, `{"query":`, http.StatusBadRequest, CodeInvalidBody},
		{"too few rows", "", 10, `{"query":"smoke"}`, http.StatusInternalServerError, CodeInsufficientResults},
		{"empty corpus", " \n", 3, `{"query":"smoke"}`, http.StatusInternalServerError, CodeDataRequest},
		{"malformed corpus", "0,curie_similarity,curie_search\na,[1,x],[1]\n", 1, `{"query":"smoke"}`, http.StatusInternalServerError, CodeCorpusParse},
		{"dimension mismatch", "0,curie_similarity,curie_search\na,\"[1,0]\",\"[1,0]\"\n", 1, `{"query":"smoke"}`, http.StatusInternalServerError, CodeDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.corpus, tt.k)
			w := env.do(t, http.MethodPost, "/api/v1/recommendations", tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if code := errorCode(t, w); code != tt.wantCode {
				t.Errorf("code: got %s, want %s", code, tt.wantCode)
			}
		})
	}
}

func TestHandleCompletionAndChat(t *testing.T) {
	env := newTestEnv(t, "", 3)

	w := env.do(t, http.MethodPost, "/api/v1/completions", `{"prompt":"Deep garnet"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("completions status: %d %s", w.Code, w.Body.String())
	}
	var comp openai.CompletionResponse
	decode(t, w, &comp)
	if len(comp.Choices) != 3 {
		t.Errorf("choices = %+v", comp.Choices)
	}

	w = env.do(t, http.MethodPost, "/api/v1/chat", `{"notes":"black fruit, grippy"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("chat status: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/reimagine", `{}`)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != CodeMissingTastingNotes {
		t.Errorf("reimagine without notes: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, "/api/v1/chat", `{"notes":"x","wine":{"name":"only a name"}}`)
	if w.Code != http.StatusBadRequest || errorCode(t, w) != CodeValidation {
		t.Errorf("chat with invalid wine: %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/v1/edits", `{"input":"Tart","instruction":"Expand"}`)
	if w.Code != http.StatusInternalServerError || errorCode(t, w) != CodeRequestError {
		t.Errorf("edit upstream failure: %d", w.Code)
	}
}

const wineBody = `{
	"name": "Chablis Premier Cru",
	"style": "white",
	"country": "France",
	"region": "Burgundy",
	"vineyard": "Montée de Tonnerre",
	"vintage": 2020,
	"score": 93,
	"flavourProfile": ["oyster shell", "lemon"]
}`

func TestWineRoutes(t *testing.T) {
	env := newTestEnv(t, "", 3)

	w := env.do(t, http.MethodPost, "/api/v1/users/u1/wines", wineBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var wine models.Wine
	decode(t, w, &wine)
	if wine.SK == "" || wine.UserID != "u1" {
		t.Fatalf("created = %+v", wine)
	}
	base := "/api/v1/users/u1/wines/" + wine.SK

	w = env.do(t, http.MethodGet, "/api/v1/users/u1/wines", "")
	var list []models.Wine
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("list = %+v", list)
	}

	w = env.do(t, http.MethodPut, base, strings.Replace(wineBody, `"score": 93`, `"score": 95`, 1))
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodPost, base+"/notes", `{"text":"Saline, green apple, flint."}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("add note: %d %s", w.Code, w.Body.String())
	}
	var note models.TastingNote
	decode(t, w, &note)

	w = env.do(t, http.MethodGet, base+"/notes", "")
	var notes []models.TastingNote
	decode(t, w, &notes)
	if len(notes) != 1 || notes[0].SK != note.SK {
		t.Errorf("notes = %+v", notes)
	}

	w = env.do(t, http.MethodPut, base+"/tasting-note", fmt.Sprintf(`{"tastingNoteSk":%q}`, note.SK))
	if w.Code != http.StatusOK {
		t.Fatalf("select: %d %s", w.Code, w.Body.String())
	}
	decode(t, w, &wine)
	if wine.TastingNoteSK != note.SK || wine.Score != 95 {
		t.Errorf("wine after select = %+v", wine)
	}

	w = env.do(t, http.MethodGet, "/api/v1/status", "")
	var status struct {
		Wines        int64            `json:"wines"`
		TastingNotes int64            `json:"tasting_notes"`
		Recommender  recommend.Status `json:"recommender"`
	}
	decode(t, w, &status)
	if status.Wines != 1 || status.TastingNotes != 1 || status.Recommender.K != 3 {
		t.Errorf("status = %+v", status)
	}

	w = env.do(t, http.MethodDelete, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	w = env.do(t, http.MethodGet, base, "")
	if w.Code != http.StatusNotFound || errorCode(t, w) != CodeNotFound {
		t.Errorf("get after delete: %d", w.Code)
	}
}

func TestWineRoutes_validation(t *testing.T) {
	env := newTestEnv(t, "", 3)
	w := env.do(t, http.MethodPost, "/api/v1/users/u1/wines", `{"name":"x","vintage":1500}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
	var out struct {
		Error   string `json:"error"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	decode(t, w, &out)
	if out.Error != CodeValidation || len(out.Details) == 0 {
		t.Errorf("response = %+v", out)
	}

	w = env.do(t, http.MethodPut, "/api/v1/users/u1/wines/missing", wineBody)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing: %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, "", 3)
	w := env.do(t, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health: %d", w.Code)
	}
	_ = env.do(t, http.MethodPost, "/api/v1/recommendations", `{"query":"smoke"}`)
	w = env.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"sommelier_api_requests_total", "sommelier_recommendations_total", "sommelier_corpus_loads_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestPagination(t *testing.T) {
	tests := []struct {
		query      string
		wantOffset int
		wantLimit  int
	}{
		{"", 0, defaultPageSize},
		{"?limit=10&offset=20", 20, 10},
		{"?limit=-1&offset=abc", 0, defaultPageSize},
		{"?limit=100000", 0, maxPageSize},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/x"+tt.query, nil)
		offset, limit := pagination(r)
		if offset != tt.wantOffset || limit != tt.wantLimit {
			t.Errorf("%q: got (%d, %d), want (%d, %d)", tt.query, offset, limit, tt.wantOffset, tt.wantLimit)
		}
	}
}
