package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxBatchSize is the maximum number of identifiers per /cards/collection request.
const MaxBatchSize = 75

// CardIdentifier represents a card identifier for the /cards/collection endpoint.
type CardIdentifier struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// CollectionRequest is the request body for /cards/collection.
type CollectionRequest struct {
	Identifiers []CardIdentifier `json:"identifiers"`
}

// CollectionResponse is the response from /cards/collection.
type CollectionResponse struct {
	Object   string           `json:"object"`
	NotFound []CardIdentifier `json:"not_found"`
	Data     []Card           `json:"data"`
}

// GetCardsByNames fetches cards by name using the batch /cards/collection
// endpoint, splitting the input into batches of MaxBatchSize. The second
// return value lists names Scryfall did not recognize.
func (c *Client) GetCardsByNames(ctx context.Context, names []string) ([]Card, []string, error) {
	if len(names) == 0 {
		return []Card{}, nil, nil
	}

	var allCards []Card
	var allNotFound []string

	for i := 0; i < len(names); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(names))

		cards, notFound, err := c.fetchCardsByNamesBatch(ctx, names[i:end])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch batch %d-%d: %w", i, end, err)
		}
		allCards = append(allCards, cards...)
		allNotFound = append(allNotFound, notFound...)
	}

	return allCards, allNotFound, nil
}

func (c *Client) fetchCardsByNamesBatch(ctx context.Context, names []string) ([]Card, []string, error) {
	identifiers := make([]CardIdentifier, len(names))
	for i, name := range names {
		identifiers[i] = CardIdentifier{Name: name}
	}

	body, err := json.Marshal(CollectionRequest{Identifiers: identifiers})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var resp CollectionResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/cards/collection", body, &resp); err != nil {
		return nil, nil, err
	}

	notFound := make([]string, 0, len(resp.NotFound))
	for _, id := range resp.NotFound {
		if id.Name != "" {
			notFound = append(notFound, id.Name)
		}
	}
	return resp.Data, notFound, nil
}
