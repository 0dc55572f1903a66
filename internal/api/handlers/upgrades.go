// Package handlers implements the HTTP handlers of the upgrade API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/advisor"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/api/response"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/deckimport"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/llm"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// maxBodyBytes bounds request bodies; a full decklist plus suggestions fits easily.
const maxBodyBytes = 1 << 20

// UpgradeService is the advisor surface the handlers depend on.
type UpgradeService interface {
	Validate(ctx context.Context, req upgrades.Request) *upgrades.Result
	Suggest(ctx context.Context, req advisor.SuggestRequest) (*advisor.SuggestResult, error)
	Tables() *upgrades.Tables
}

// UpgradeHandler handles upgrade validation and suggestion requests.
type UpgradeHandler struct {
	service       UpgradeService
	defaultFormat upgrades.Format
	logger        *zap.Logger
}

// NewUpgradeHandler creates a new UpgradeHandler. defaultFormat is used when a
// request names no format.
func NewUpgradeHandler(service UpgradeService, defaultFormat upgrades.Format, logger *zap.Logger) *UpgradeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UpgradeHandler{service: service, defaultFormat: defaultFormat, logger: logger}
}

// DeckInput is the deck part shared by validate and suggest requests. The deck
// may be given as structured cards, as pasted decklist text, or both.
type DeckInput struct {
	Deck          []upgrades.DeckCard `json:"deck"`
	DeckText      string              `json:"deck_text,omitempty"`
	Commander     string              `json:"commander,omitempty"`
	AllowedColors []string            `json:"allowed_colors,omitempty"`
	Format        string              `json:"format,omitempty"`
}

// ValidateRequest represents a request to validate LLM suggestions.
type ValidateRequest struct {
	DeckInput
	Text       string `json:"text"`
	RepairPass bool   `json:"repair_pass,omitempty"`
}

// SuggestRequest represents a request to generate upgrade suggestions.
type SuggestRequest struct {
	DeckInput
	Suggestions int `json:"suggestions,omitempty"`
}

// deckParams is a resolved DeckInput.
type deckParams struct {
	deck      []upgrades.DeckCard
	commander string
	colors    []string
	format    upgrades.Format
	warnings  []string
}

func (h *UpgradeHandler) resolveDeck(in DeckInput) (*deckParams, error) {
	p := &deckParams{
		deck:      append([]upgrades.DeckCard(nil), in.Deck...),
		commander: strings.TrimSpace(in.Commander),
		colors:    upgrades.SplitColors(in.AllowedColors...),
		format:    h.defaultFormat,
	}

	if strings.TrimSpace(in.Format) != "" {
		format, ok := upgrades.FormatByName(in.Format)
		if !ok {
			return nil, fmt.Errorf("unknown format %q", in.Format)
		}
		p.format = format
	}

	if strings.TrimSpace(in.DeckText) != "" {
		parsed, err := deckimport.NewParser().Parse(in.DeckText)
		if err != nil {
			return nil, fmt.Errorf("parse deck_text: %w", err)
		}
		p.deck = append(p.deck, parsed.Deck.Cards()...)
		p.warnings = parsed.Warnings
		if p.commander == "" {
			p.commander = parsed.Deck.CommanderName()
		}
	}

	return p, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return nil
}

// ValidateResponse is the validation result plus any deck import warnings.
type ValidateResponse struct {
	*upgrades.Result
	Format   string   `json:"format"`
	Warnings []string `json:"warnings,omitempty"`
}

// Validate checks LLM suggestions against a deck and returns the repaired text.
func (h *UpgradeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	params, err := h.resolveDeck(req.DeckInput)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	result := h.service.Validate(r.Context(), upgrades.Request{
		Text:          req.Text,
		Deck:          params.deck,
		Commander:     params.commander,
		AllowedColors: params.colors,
		Format:        params.format,
		RepairPass:    req.RepairPass,
	})

	response.Success(w, ValidateResponse{
		Result:   result,
		Format:   params.format.Name,
		Warnings: params.warnings,
	})
}

// Suggest generates upgrade suggestions and returns the validated result.
func (h *UpgradeHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, err)
		return
	}

	params, err := h.resolveDeck(req.DeckInput)
	if err != nil {
		response.BadRequest(w, err)
		return
	}

	result, err := h.service.Suggest(r.Context(), advisor.SuggestRequest{
		Deck:          params.deck,
		Commander:     params.commander,
		AllowedColors: params.colors,
		Format:        params.format,
		Suggestions:   req.Suggestions,
	})
	switch {
	case errors.Is(err, advisor.ErrEmptyDeck):
		response.BadRequest(w, err)
		return
	case errors.Is(err, llm.ErrUnavailable):
		response.ServiceUnavailable(w, err)
		return
	case err != nil:
		h.logger.Warn("suggestion request failed", zap.Error(err))
		response.BadGateway(w, err)
		return
	}

	response.Success(w, result)
}

// GetFormats returns the supported format variants.
func (h *UpgradeHandler) GetFormats(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, upgrades.Formats())
}

// TablesResponse describes the lookup tables in use.
type TablesResponse struct {
	StrictlyWorse []upgrades.SwapPair `json:"strictly_worse"`
}

// GetTables returns the strictly-worse pairs currently in use.
func (h *UpgradeHandler) GetTables(w http.ResponseWriter, _ *http.Request) {
	pairs := h.service.Tables().Pairs()
	if pairs == nil {
		pairs = []upgrades.SwapPair{}
	}
	response.Success(w, TablesResponse{StrictlyWorse: pairs})
}
