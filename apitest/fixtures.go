package apitest

import (
	"fmt"
	"os"
	"testing"
)

// Page builds a paginated response body. An empty next or previous is sent
// as false, the way the API marks the ends of a sequence.
func Page(data []any, previous, next string) map[string]any {
	link := func(s string) any {
		if s == "" {
			return false
		}
		return s
	}

	return map[string]any{
		"_meta": map[string]any{
			"code":     200,
			"has_more": next != "",
			"previous": link(previous),
			"next":     link(next),
			"count":    len(data),
		},
		"data": data,
	}
}

// NewFeedback creates a feedback entry for dataset datasetID.
func NewFeedback(id, datasetID int, score int, comment string) map[string]any {
	return map[string]any{
		"id":         id,
		"created":    fmt.Sprintf("2024-01-%02d 10:00:00", id%28+1),
		"dataset_id": datasetID,
		"report_id":  1,
		"tags":       []any{"web"},
		"items": []any{
			map[string]any{"key": "nps", "label": "How likely are you to recommend us?", "value": score},
			map[string]any{"key": "comment", "label": "Comment", "value": comment},
		},
	}
}

// FeedbackPages splits count feedback entries for datasetID into pages of
// size perPage, linked by ?page=n cursors under /datasets/{id}/feedback.
func FeedbackPages(datasetID, count, perPage int) []any {
	base := fmt.Sprintf("/datasets/%d/feedback", datasetID)

	var pages []any
	total := (count + perPage - 1) / perPage
	for p := 1; p <= total; p++ {
		var data []any
		for i := (p-1)*perPage + 1; i <= p*perPage && i <= count; i++ {
			data = append(data, NewFeedback(i, datasetID, i%11, fmt.Sprintf("comment %d", i)))
		}

		prev, next := "", ""
		if p > 1 {
			prev = fmt.Sprintf("%s?page=%d", base, p-1)
		}
		if p < total {
			next = fmt.Sprintf("%s?page=%d", base, p+1)
		}

		pages = append(pages, Page(data, prev, next))
	}

	return pages
}

// NewAccount returns an account body.
func NewAccount() map[string]any {
	return map[string]any{
		"name":           "Test Account",
		"package":        "Enterprise",
		"enddate":        "2030-01-01 00:00:00",
		"number_users":   3,
		"number_charts":  12,
		"number_forms":   4,
		"number_reports": 1,
		"reports": []any{
			map[string]any{"id": 1, "name": "Website", "language": "en_US"},
		},
		"_meta": map[string]any{"code": 200},
	}
}

// LiveConfig holds configuration for tests against the real API.
type LiveConfig struct {
	// BaseURL is the API endpoint (e.g., https://api.mopinion.com).
	BaseURL string

	PublicKey  string
	PrivateKey string

	// DatasetID is an optional known dataset for feedback tests.
	DatasetID string
}

// LoadLiveConfig loads live test configuration from environment variables and
// skips the test when it cannot run:
//   - MOPINION_TEST_BASE_URL: API endpoint (default: https://api.mopinion.com)
//   - MOPINION_TEST_PUBLIC_KEY, MOPINION_TEST_PRIVATE_KEY: required
//   - MOPINION_TEST_DATASET_ID: optional dataset for feedback tests
func LoadLiveConfig(t *testing.T) LiveConfig {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping live API test in short mode")
	}

	cfg := LiveConfig{
		BaseURL:    getEnvOrDefault("MOPINION_TEST_BASE_URL", "https://api.mopinion.com"),
		PublicKey:  os.Getenv("MOPINION_TEST_PUBLIC_KEY"),
		PrivateKey: os.Getenv("MOPINION_TEST_PRIVATE_KEY"),
		DatasetID:  os.Getenv("MOPINION_TEST_DATASET_ID"),
	}

	if cfg.PublicKey == "" {
		t.Skip("MOPINION_TEST_PUBLIC_KEY not set")
	}

	if cfg.PrivateKey == "" {
		t.Skip("MOPINION_TEST_PRIVATE_KEY not set")
	}

	return cfg
}

// RequireDatasetID skips the test if no dataset ID is configured.
func (c LiveConfig) RequireDatasetID(t *testing.T) {
	t.Helper()

	if c.DatasetID == "" {
		t.Skip("MOPINION_TEST_DATASET_ID not set")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultValue
}
