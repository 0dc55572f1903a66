package scryfall

import (
	"errors"
	"fmt"
	"strings"
)

// Card is the subset of a Scryfall card object the advisor reads.
type Card struct {
	ID            string     `json:"id"`
	OracleID      string     `json:"oracle_id"`
	Name          string     `json:"name"`
	Layout        string     `json:"layout"`
	ManaCost      string     `json:"mana_cost,omitempty"`
	CMC           float64    `json:"cmc"`
	TypeLine      string     `json:"type_line"`
	Colors        []string   `json:"colors,omitempty"`
	ColorIdentity []string   `json:"color_identity"`
	CardFaces     []CardFace `json:"card_faces,omitempty"`
}

// CardFace represents one face of a multi-faced card.
type CardFace struct {
	Name     string   `json:"name"`
	ManaCost string   `json:"mana_cost,omitempty"`
	TypeLine string   `json:"type_line"`
	Colors   []string `json:"colors,omitempty"`
}

// FaceNames returns the names a card can be referred to by: the full name
// first, then each face name for multi-faced cards.
func (c *Card) FaceNames() []string {
	names := []string{c.Name}
	for _, face := range c.CardFaces {
		if face.Name != "" && face.Name != c.Name {
			names = append(names, face.Name)
		}
	}
	if len(c.CardFaces) == 0 && strings.Contains(c.Name, "//") {
		for _, part := range strings.Split(c.Name, "//") {
			if part = strings.TrimSpace(part); part != "" {
				names = append(names, part)
			}
		}
	}
	return names
}

// APIError represents an error response from the Scryfall API.
type APIError struct {
	Object   string   `json:"object"`
	Code     string   `json:"code"`
	Status   int      `json:"status"`
	Details  string   `json:"details"`
	Type     string   `json:"type,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Details)
	}
	return fmt.Sprintf("Scryfall API error (HTTP %d): %s", e.Status, e.Code)
}

// NotFoundError represents a 404 error from the API.
type NotFoundError struct {
	URL string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resource not found: %s", e.URL)
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
