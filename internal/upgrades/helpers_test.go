package upgrades

import (
	"context"
	"errors"
	"sync"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
)

// fakeResolver is an in-memory IdentityResolver.
type fakeResolver struct {
	mu         sync.Mutex
	identities map[string][]string // display name -> color identity
	err        error
	calls      int
	requested  [][]string
}

func newFakeResolver(cards map[string][]string) *fakeResolver {
	return &fakeResolver{identities: cards}
}

func (f *fakeResolver) ResolveIdentities(_ context.Context, names []string) (map[string]CardIdentity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.requested = append(f.requested, append([]string(nil), names...))
	if f.err != nil {
		return nil, f.err
	}

	out := make(map[string]CardIdentity)
	for _, name := range names {
		key := cardname.Normalize(name)
		for known, colors := range f.identities {
			if cardname.Normalize(known) == key {
				out[key] = CardIdentity{NormalizedName: key, ColorIdentity: colors}
			}
		}
	}
	return out, nil
}

var errUnreachable = errors.New("metadata service unreachable")

func standardCards() map[string][]string {
	return map[string][]string{
		"Sol Ring":                   {"C"},
		"Lotus Petal":                {"C"},
		"Counterspell":               {"U"},
		"Thoughtseize":               {"B"},
		"Wrath of God":               {"W"},
		"Murder":                     {"B"},
		"Putrefy":                    {"B", "G"},
		"Lightning Bolt":             {"R"},
		"Brainstorm":                 {"U"},
		"Fatal Push":                 {"B"},
		"Ponder":                     {"U"},
		"Mystery Card":               nil,
		"Baleful Strix":              {"U", "B"},
		"Arcane Signet":              {"C"},
		"Demonic Tutor":              {"B"},
		"Rhystic Study":              {"U"},
		"Snapcaster Mage":            {"U"},
		"Yuriko, the Tiger's Shadow": {"U", "B"},
	}
}
