// Package deckimport parses Arena exports and plain-text deck lists into the
// card list the validator checks suggestions against.
package deckimport

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

// Board names.
const (
	BoardCommander = "commander"
	BoardMain      = "main"
	BoardSideboard = "sideboard"
	BoardCompanion = "companion"
)

// ErrNoCards is returned when nothing in the input looks like a card line.
var ErrNoCards = errors.New("no cards found in import")

// ParsedCard represents a single card in a deck import.
type ParsedCard struct {
	Quantity int
	Name     string
	SetCode  string // Optional, from "4 Lightning Bolt (M21) 123"
	Board    string
}

// ParsedDeck represents a deck parsed from an import string.
type ParsedDeck struct {
	Name      string
	Commander []*ParsedCard
	Companion []*ParsedCard
	Mainboard []*ParsedCard
	Sideboard []*ParsedCard
}

// ParseResult contains the result of parsing a deck import.
type ParseResult struct {
	Deck     *ParsedDeck
	Warnings []string
}

var (
	// "4 Lightning Bolt", "4x Lightning Bolt", "1 Lightning Bolt (M21) 123 *F*"
	quantityFirstRegex = regexp.MustCompile(`^(\d+)x?\s+(.+?)(?:\s+\(([A-Za-z0-9]+)\)(?:\s+[A-Za-z0-9-]+)?)?(?:\s+\*[A-Z]+\*)?$`)
	// "Lightning Bolt x4"
	quantityLastRegex = regexp.MustCompile(`^(.+?)\s+x(\d+)$`)
)

var sectionHeaders = map[string]string{
	"deck":       BoardMain,
	"main":       BoardMain,
	"mainboard":  BoardMain,
	"maindeck":   BoardMain,
	"commander":  BoardCommander,
	"commanders": BoardCommander,
	"sideboard":  BoardSideboard,
	"companion":  BoardCompanion,
}

// Parser handles deck import parsing.
type Parser struct{}

// NewParser creates a new deck import parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads an Arena export or a plain-text list. Section headers
// (Commander, Deck, Sideboard, Companion) switch the board; in Arena exports a
// blank line after the main deck starts the sideboard. Lines that are not
// cards are reported as warnings.
func (p *Parser) Parse(input string) (*ParseResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty import string")
	}

	result := &ParseResult{Deck: &ParsedDeck{}}
	board := BoardMain
	arena := false
	seenCards := false
	afterAbout := false

	for i, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)

		if line == "" {
			if arena && board == BoardMain && len(result.Deck.Mainboard) > 0 {
				board = BoardSideboard
			}
			continue
		}
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		header := strings.ToLower(strings.TrimSuffix(line, ":"))
		if header == "about" {
			afterAbout = true
			continue
		}
		if afterAbout && strings.HasPrefix(line, "Name ") {
			result.Deck.Name = strings.TrimSpace(strings.TrimPrefix(line, "Name "))
			afterAbout = false
			continue
		}
		if next, ok := sectionHeaders[header]; ok {
			board = next
			if header == "deck" {
				arena = true
			}
			continue
		}
		if strings.HasPrefix(header, "sideboard") {
			board = BoardSideboard
			continue
		}

		card, ok := parseCardLine(line)
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Line %d: Could not parse '%s'", i+1, line))
			continue
		}
		card.Board = board
		seenCards = true

		switch board {
		case BoardCommander:
			result.Deck.Commander = append(result.Deck.Commander, card)
		case BoardCompanion:
			result.Deck.Companion = append(result.Deck.Companion, card)
		case BoardSideboard:
			result.Deck.Sideboard = append(result.Deck.Sideboard, card)
		default:
			result.Deck.Mainboard = append(result.Deck.Mainboard, card)
		}
	}

	if !seenCards {
		return nil, ErrNoCards
	}
	return result, nil
}

func parseCardLine(line string) (*ParsedCard, bool) {
	if m := quantityFirstRegex.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			return &ParsedCard{Quantity: q, Name: strings.TrimSpace(m[2]), SetCode: strings.ToUpper(m[3])}, true
		}
	}
	if m := quantityLastRegex.FindStringSubmatch(line); m != nil {
		if q, err := strconv.Atoi(m[2]); err == nil && q > 0 {
			return &ParsedCard{Quantity: q, Name: strings.TrimSpace(m[1])}, true
		}
	}
	return nil, false
}

// CommanderName returns the first commander, or "" when the list has none.
func (d *ParsedDeck) CommanderName() string {
	if len(d.Commander) == 0 {
		return ""
	}
	return d.Commander[0].Name
}

// Cards flattens every board into the card list the validator uses as the
// deck. The commander counts as part of the deck, as does the sideboard, so
// sideboard cards are legal cuts and count toward copy limits.
func (d *ParsedDeck) Cards() []upgrades.DeckCard {
	var cards []upgrades.DeckCard
	for _, board := range [][]*ParsedCard{d.Commander, d.Companion, d.Mainboard, d.Sideboard} {
		for _, c := range board {
			cards = append(cards, upgrades.DeckCard{Name: c.Name, Count: c.Quantity})
		}
	}
	return cards
}
