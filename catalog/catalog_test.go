package catalog

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mopinion/mopinion-go/api"
	"github.com/mopinion/mopinion-go/apitest"
	"github.com/mopinion/mopinion-go/types"
)

func newTestCatalog(t *testing.T, srv *apitest.Server) *Catalog {
	t.Helper()

	client, err := api.NewClient(t.Context(), api.Config{
		BaseURL:    srv.URL,
		PublicKey:  apitest.PublicKey,
		PrivateKey: apitest.PrivateKey,
		MaxRetries: -1,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return New(client)
}

func TestAccount(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/account", http.StatusOK, apitest.NewAccount())

	account, err := newTestCatalog(t, srv).Account(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "Test Account", account.Name)
	assert.Equal(t, "Enterprise", account.Package)
	assert.Equal(t, 3, account.NumberUsers)
	require.Len(t, account.Reports, 1)
	assert.Equal(t, types.ReportSummary{ID: 1, Name: "Website", Language: "en_US"}, account.Reports[0])
}

func TestListsFromDataArray(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/datasets", http.StatusOK, map[string]any{
		"_meta": map[string]any{"code": 200},
		"data": []any{
			map[string]any{"id": 1, "name": "Website", "report_id": "4", "data_source": "form"},
			map[string]any{"id": 2, "name": "App", "report_id": 4},
		},
	})

	datasets, err := newTestCatalog(t, srv).Datasets(t.Context())
	require.NoError(t, err)

	require.Len(t, datasets, 2)
	assert.Equal(t, types.Dataset{ID: 1, Name: "Website", ReportID: 4, DataSource: "form"}, datasets[0])
	assert.Equal(t, 2, datasets[1].ID)
}

func TestListsFromKeyedObject(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/reports", http.StatusOK, map[string]any{
		"_meta": map[string]any{"code": 200},
		"10":    map[string]any{"id": 11, "name": "Eleventh"},
		"0":     map[string]any{"id": 1, "name": "First"},
		"2":     map[string]any{"id": 3, "name": "Third"},
	})

	reports, err := newTestCatalog(t, srv).Reports(t.Context())
	require.NoError(t, err)

	require.Len(t, reports, 3)
	assert.Equal(t, []int{1, 3, 11}, []int{reports[0].ID, reports[1].ID, reports[2].ID})
}

func TestSingleResources(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/datasets/{id}", http.StatusOK, map[string]any{
		"data": []any{map[string]any{"id": 7, "name": "Website"}},
	})
	srv.JSON(http.MethodGet, "/reports/{id}", http.StatusOK, map[string]any{
		"_meta": map[string]any{"code": 200},
		"id":    3, "name": "Main", "language": "nl_NL",
		"datasets": []any{map[string]any{"id": 7, "name": "Website"}},
	})
	srv.JSON(http.MethodGet, "/deployments/{key}", http.StatusOK, map[string]any{
		"data": map[string]any{"key": "abc123", "name": "Website deployment"},
	})

	c := newTestCatalog(t, srv)

	dataset, err := c.Dataset(t.Context(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Website", dataset.Name)
	assert.Equal(t, "/datasets/7", srv.Last().Path)

	report, err := c.Report(t.Context(), 3)
	require.NoError(t, err)
	assert.Equal(t, "nl_NL", report.Language)
	require.Len(t, report.Datasets, 1)

	deployment, err := c.Deployment(t.Context(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Website deployment", deployment.Name)
}

func TestFields(t *testing.T) {
	srv := apitest.NewServer(t)
	fields := map[string]any{
		"data": []any{
			map[string]any{"key": "nps", "label": "NPS", "type": "nps", "answer_values": []any{0, 1, 2}},
			map[string]any{"key": "comment", "label": "Comment", "type": "textarea"},
		},
	}
	srv.JSON(http.MethodGet, "/datasets/{id}/fields", http.StatusOK, fields)
	srv.JSON(http.MethodGet, "/reports/{id}/fields", http.StatusOK, fields)

	c := newTestCatalog(t, srv)

	got, err := c.DatasetFields(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"0", "1", "2"}, got[0].AnswerValues)

	got, err = c.ReportFields(t.Context(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "/reports/1/fields", srv.Last().Path)
}

func TestErrorsAreWrapped(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/datasets/{id}", http.StatusNotFound, map[string]any{"error": "not found"})

	_, err := newTestCatalog(t, srv).Dataset(t.Context(), 99)
	require.Error(t, err)
	assert.True(t, api.IsNotFoundError(err))
	assert.ErrorContains(t, err, "failed to get dataset 99")
}

func TestRecords(t *testing.T) {
	assert.Empty(t, Records(map[string]any{"_meta": map[string]any{"code": 200}}))
	assert.Len(t, Records(map[string]any{"data": map[string]any{"a": map[string]any{}, "b": map[string]any{}}}), 2)
	assert.Len(t, Records(map[string]any{"data": []any{1, 2, 3}}), 3)
	assert.Empty(t, Records(map[string]any{"name": "scalar", "count": 3}))
}
