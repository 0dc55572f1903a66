package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/advisor"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/cardname"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/metrics"
	"github.com/ramonehamilton/MTG-Upgrade-Advisor/internal/upgrades"
)

type staticResolver map[string][]string

func (r staticResolver) ResolveIdentities(_ context.Context, names []string) (map[string]upgrades.CardIdentity, error) {
	out := make(map[string]upgrades.CardIdentity)
	for _, name := range names {
		key := cardname.Normalize(name)
		if colors, ok := r[key]; ok {
			out[key] = upgrades.CardIdentity{NormalizedName: key, ColorIdentity: colors}
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	resolver := staticResolver{
		"sol ring":       {"C"},
		"counterspell":   {"U"},
		"lightning bolt": {"R"},
		"murder":         {"B"},
	}
	svc := advisor.NewService(resolver, advisor.Options{Metrics: metrics.New(reg)})

	server := NewServer(nil, svc, reg, nil)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewServer_NilConfig(t *testing.T) {
	server := NewServer(nil, advisor.NewService(staticResolver{}, advisor.Options{}), nil, nil)
	require.NotNil(t, server)
	assert.Equal(t, 8080, server.Port())
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Data["status"])
	assert.Equal(t, false, body.Data["llm_available"])
}

func TestServer_ValidateEndToEnd(t *testing.T) {
	ts := newTestServer(t)

	payload := `{
		"deck": [{"name": "Sol Ring", "count": 1}, {"name": "Murder", "count": 1}],
		"allowed_colors": ["U", "B"],
		"text": "ADD [[Counterspell]] CUT [[Murder]]\nADD [[Lightning Bolt]] CUT [[Sol Ring]]"
	}`
	resp, err := http.Post(ts.URL+"/api/v1/upgrades/validate", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data struct {
			Valid        bool             `json:"valid"`
			RepairedText string           `json:"repaired_text"`
			Issues       []upgrades.Issue `json:"issues"`
			Format       string           `json:"format"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.False(t, body.Data.Valid)
	assert.Equal(t, "ADD [[Counterspell]] CUT [[Murder]]", body.Data.RepairedText)
	require.Len(t, body.Data.Issues, 1)
	assert.Equal(t, upgrades.IssueOffColor, body.Data.Issues[0].Kind)
	assert.Equal(t, "commander", body.Data.Format)

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	raw, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `upgrade_issues_total{kind="off_color"} 1`)
}

func TestServer_SuggestWithoutBackend(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/upgrades/suggest", "application/json",
		strings.NewReader(`{"deck": [{"name": "Sol Ring", "count": 1}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_ContentTypeEnforced(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/upgrades/validate", "text/plain", strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestServer_NotFoundAndMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/upgrades/validate")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Formats(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/upgrades/formats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Data []upgrades.Format `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Data, len(upgrades.Formats()))
}
