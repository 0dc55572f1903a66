package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/advisor"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/llm"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// mockUpgradeService records the last request it was given.
type mockUpgradeService struct {
	result        *upgrades.Result
	suggestResult *advisor.SuggestResult
	err           error

	lastValidate upgrades.Request
	lastSuggest  advisor.SuggestRequest
}

func (m *mockUpgradeService) Validate(_ context.Context, req upgrades.Request) *upgrades.Result {
	m.lastValidate = req
	return m.result
}

func (m *mockUpgradeService) Suggest(_ context.Context, req advisor.SuggestRequest) (*advisor.SuggestResult, error) {
	m.lastSuggest = req
	return m.suggestResult, m.err
}

func (m *mockUpgradeService) Tables() *upgrades.Tables {
	return upgrades.DefaultTables()
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func TestUpgradeHandler_Validate(t *testing.T) {
	mock := &mockUpgradeService{result: &upgrades.Result{
		Valid:        true,
		RepairedText: "ADD [[Counterspell]]",
		Issues:       []upgrades.Issue{},
	}}
	handler := NewUpgradeHandler(mock, upgrades.FormatCommander, nil)

	rr := postJSON(t, handler.Validate, ValidateRequest{
		DeckInput: DeckInput{
			Deck:   []upgrades.DeckCard{{Name: "Sol Ring", Count: 1}},
			Format: "standard",
		},
		Text:       "ADD [[Counterspell]]",
		RepairPass: true,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var got ValidateResponse
	decodeData(t, rr, &got)
	assert.True(t, got.Valid)
	assert.Equal(t, "ADD [[Counterspell]]", got.RepairedText)
	assert.Equal(t, "constructed", got.Format)

	assert.Equal(t, upgrades.FormatConstructed, mock.lastValidate.Format)
	assert.True(t, mock.lastValidate.RepairPass)
	assert.Equal(t, "ADD [[Counterspell]]", mock.lastValidate.Text)
}

func TestUpgradeHandler_Validate_DeckText(t *testing.T) {
	mock := &mockUpgradeService{result: &upgrades.Result{Valid: true, Issues: []upgrades.Issue{}}}
	handler := NewUpgradeHandler(mock, upgrades.FormatCommander, nil)

	rr := postJSON(t, handler.Validate, ValidateRequest{
		DeckInput: DeckInput{
			Deck:     []upgrades.DeckCard{{Name: "Arcane Signet", Count: 1}},
			DeckText: "Commander\n1 Yuriko, the Tiger's Shadow\n\nDeck\n1 Sol Ring\n1 Ponder\n",
		},
		Text: "ADD [[Brainstorm]]",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, upgrades.FormatCommander, mock.lastValidate.Format)
	assert.Equal(t, "Yuriko, the Tiger's Shadow", mock.lastValidate.Commander)

	deck := upgrades.DeckMultiset(mock.lastValidate.Deck)
	assert.Equal(t, 1, deck["arcane signet"])
	assert.Equal(t, 1, deck["sol ring"])
	assert.Equal(t, 1, deck["ponder"])
}

func TestUpgradeHandler_AllowedColorsAreSplit(t *testing.T) {
	mock := &mockUpgradeService{
		result:        &upgrades.Result{Valid: true, Issues: []upgrades.Issue{}},
		suggestResult: &advisor.SuggestResult{Result: &upgrades.Result{Valid: true, Issues: []upgrades.Issue{}}},
	}
	handler := NewUpgradeHandler(mock, upgrades.FormatCommander, nil)
	deck := []upgrades.DeckCard{{Name: "Sol Ring", Count: 1}}

	rr := postJSON(t, handler.Validate, ValidateRequest{
		DeckInput: DeckInput{Deck: deck, AllowedColors: []string{"UB"}},
		Text:      "ADD [[Counterspell]]",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"U", "B"}, mock.lastValidate.AllowedColors)

	rr = postJSON(t, handler.Suggest, SuggestRequest{
		DeckInput: DeckInput{Deck: deck, AllowedColors: []string{"w", "Green", "x"}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"W", "G"}, mock.lastSuggest.AllowedColors)
}

func TestUpgradeHandler_Validate_BadRequests(t *testing.T) {
	handler := NewUpgradeHandler(&mockUpgradeService{}, upgrades.FormatCommander, nil)

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
		rr := httptest.NewRecorder()
		handler.Validate(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown format", func(t *testing.T) {
		rr := postJSON(t, handler.Validate, ValidateRequest{
			DeckInput: DeckInput{Format: "cube"},
			Text:      "ADD [[Sol Ring]]",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "unknown format")
	})

	t.Run("unparseable deck text", func(t *testing.T) {
		rr := postJSON(t, handler.Validate, ValidateRequest{
			DeckInput: DeckInput{DeckText: "// just a comment"},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestUpgradeHandler_Suggest(t *testing.T) {
	mock := &mockUpgradeService{suggestResult: &advisor.SuggestResult{
		SessionID: "abc",
		Provider:  "ollama",
		Attempts:  1,
		Result:    &upgrades.Result{Valid: true, Issues: []upgrades.Issue{}},
	}}
	handler := NewUpgradeHandler(mock, upgrades.FormatCommander, nil)

	rr := postJSON(t, handler.Suggest, SuggestRequest{
		DeckInput: DeckInput{
			Deck:          []upgrades.DeckCard{{Name: "Sol Ring", Count: 1}},
			AllowedColors: []string{"U", "B"},
		},
		Suggestions: 4,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	var got advisor.SuggestResult
	decodeData(t, rr, &got)
	assert.Equal(t, "abc", got.SessionID)
	assert.Equal(t, 4, mock.lastSuggest.Suggestions)
	assert.Equal(t, []string{"U", "B"}, mock.lastSuggest.AllowedColors)
}

func TestUpgradeHandler_Suggest_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"empty deck", advisor.ErrEmptyDeck, http.StatusBadRequest},
		{"backend unavailable", llm.ErrUnavailable, http.StatusServiceUnavailable},
		{"wrapped unavailable", errors.Join(errors.New("generate suggestions"), llm.ErrUnavailable), http.StatusServiceUnavailable},
		{"backend failure", errors.New("boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewUpgradeHandler(&mockUpgradeService{err: tt.err}, upgrades.FormatCommander, nil)
			rr := postJSON(t, handler.Suggest, SuggestRequest{
				DeckInput: DeckInput{Deck: []upgrades.DeckCard{{Name: "Sol Ring", Count: 1}}},
			})
			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestUpgradeHandler_GetFormatsAndTables(t *testing.T) {
	handler := NewUpgradeHandler(&mockUpgradeService{}, upgrades.FormatCommander, nil)

	rr := httptest.NewRecorder()
	handler.GetFormats(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var formats []upgrades.Format
	decodeData(t, rr, &formats)
	assert.Equal(t, upgrades.Formats(), formats)

	rr = httptest.NewRecorder()
	handler.GetTables(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var tables TablesResponse
	decodeData(t, rr, &tables)
	assert.NotEmpty(t, tables.StrictlyWorse)
}
