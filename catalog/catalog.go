// Package catalog provides typed read access to the resources of a Mopinion
// account: the account itself, deployments, datasets, reports, their fields
// and their feedback.
//
// Responses are decoded into generic maps first and then into the structs in
// package types with mapstructure, so the same tags serve JSON and YAML
// content negotiation.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/mopinion/mopinion-go/api"
	"github.com/mopinion/mopinion-go/types"
)

// Catalog reads account resources through an authenticated client.
type Catalog struct {
	client *api.Client
	opts   api.RequestOptions
}

// New returns a Catalog using client. Reads use GET and the client's default
// version and content negotiation.
func New(client *api.Client) *Catalog {
	return &Catalog{
		client: client,
		opts:   api.RequestOptions{Method: "get"},
	}
}

// Account returns the account owning the client's key pair.
func (c *Catalog) Account(ctx context.Context) (*types.Account, error) {
	var account types.Account
	if err := c.getOne(ctx, api.ResourceLocator{Resource: types.ResourceAccount}, &account); err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// Deployments lists the account's deployments.
func (c *Catalog) Deployments(ctx context.Context) ([]types.Deployment, error) {
	var deployments []types.Deployment
	if err := c.getMany(ctx, api.ResourceLocator{Resource: types.ResourceDeployments}, &deployments); err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}

	return deployments, nil
}

// Deployment returns one deployment by key.
func (c *Catalog) Deployment(ctx context.Context, key string) (*types.Deployment, error) {
	var deployment types.Deployment
	l := api.ResourceLocator{Resource: types.ResourceDeployments, ResourceID: key}
	if err := c.getOne(ctx, l, &deployment); err != nil {
		return nil, fmt.Errorf("failed to get deployment %s: %w", key, err)
	}

	return &deployment, nil
}

// Datasets lists the account's datasets.
func (c *Catalog) Datasets(ctx context.Context) ([]types.Dataset, error) {
	var datasets []types.Dataset
	if err := c.getMany(ctx, api.ResourceLocator{Resource: types.ResourceDatasets}, &datasets); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	return datasets, nil
}

// Dataset returns one dataset.
func (c *Catalog) Dataset(ctx context.Context, id int) (*types.Dataset, error) {
	var dataset types.Dataset
	l := api.ResourceLocator{Resource: types.ResourceDatasets, ResourceID: api.ID(id)}
	if err := c.getOne(ctx, l, &dataset); err != nil {
		return nil, fmt.Errorf("failed to get dataset %d: %w", id, err)
	}

	return &dataset, nil
}

// DatasetFields lists the fields collected by a dataset.
func (c *Catalog) DatasetFields(ctx context.Context, id int) ([]types.Field, error) {
	return c.fields(ctx, types.ResourceDatasets, id)
}

// Reports lists the account's reports.
func (c *Catalog) Reports(ctx context.Context) ([]types.Report, error) {
	var reports []types.Report
	if err := c.getMany(ctx, api.ResourceLocator{Resource: types.ResourceReports}, &reports); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

// Report returns one report.
func (c *Catalog) Report(ctx context.Context, id int) (*types.Report, error) {
	var report types.Report
	l := api.ResourceLocator{Resource: types.ResourceReports, ResourceID: api.ID(id)}
	if err := c.getOne(ctx, l, &report); err != nil {
		return nil, fmt.Errorf("failed to get report %d: %w", id, err)
	}

	return &report, nil
}

// ReportFields lists the fields of every dataset in a report.
func (c *Catalog) ReportFields(ctx context.Context, id int) ([]types.Field, error) {
	return c.fields(ctx, types.ResourceReports, id)
}

func (c *Catalog) fields(ctx context.Context, kind types.ResourceName, id int) ([]types.Field, error) {
	var fields []types.Field
	l := api.ResourceLocator{Resource: kind, ResourceID: api.ID(id), SubResource: types.SubResourceFields}
	if err := c.getMany(ctx, l, &fields); err != nil {
		return nil, fmt.Errorf("failed to list fields of %s %d: %w", strings.TrimSuffix(kind.String(), "s"), id, err)
	}

	return fields, nil
}

// FeedbackEntry returns a single feedback item of a dataset or report.
func (c *Catalog) FeedbackEntry(ctx context.Context, kind types.ResourceName, id int, feedbackID string) (*types.Feedback, error) {
	if err := checkFeedbackKind(kind); err != nil {
		return nil, err
	}

	l := api.ResourceLocator{
		Resource:      kind,
		ResourceID:    api.ID(id),
		SubResource:   types.SubResourceFeedback,
		SubResourceID: feedbackID,
	}

	var entry types.Feedback
	if err := c.getOne(ctx, l, &entry); err != nil {
		return nil, fmt.Errorf("failed to get feedback %s: %w", feedbackID, err)
	}

	return &entry, nil
}

func (c *Catalog) getOne(ctx context.Context, l api.ResourceLocator, out any) error {
	m, err := c.get(ctx, l)
	if err != nil {
		return err
	}

	if data, ok := m["data"]; ok {
		if list, ok := data.([]any); ok && len(list) == 1 {
			return Decode(list[0], out)
		}
		if obj, ok := data.(map[string]any); ok {
			return Decode(obj, out)
		}
	}

	delete(m, "_meta")
	return Decode(m, out)
}

func (c *Catalog) getMany(ctx context.Context, l api.ResourceLocator, out any) error {
	m, err := c.get(ctx, l)
	if err != nil {
		return err
	}

	return Decode(Records(m), out)
}

func (c *Catalog) get(ctx context.Context, l api.ResourceLocator) (map[string]any, error) {
	resp, err := c.client.Resource(ctx, l, c.opts)
	if err != nil {
		return nil, err
	}

	return resp.Map()
}

// Records extracts the records of a decoded response body. The API returns
// them either as a "data" list or as an object keyed by position; keys
// starting with an underscore, such as _meta, are never records.
func Records(body map[string]any) []any {
	switch data := body["data"].(type) {
	case []any:
		return data
	case map[string]any:
		return keyedRecords(data)
	}

	return keyedRecords(body)
}

func keyedRecords(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, "_") {
			continue
		}
		if _, ok := v.(map[string]any); !ok {
			continue
		}
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	records := make([]any, 0, len(keys))
	for _, k := range keys {
		records = append(records, m[k])
	}

	return records
}

// Decode converts a generic value, as produced by the JSON or YAML decoders,
// into out using the mapstructure tags of package types. Numbers and strings
// are converted into one another where a field requires it.
func Decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}

	if err := dec.Decode(input); err != nil {
		return fmt.Errorf("failed to decode %T: %w", out, err)
	}

	return nil
}

func checkFeedbackKind(kind types.ResourceName) error {
	if kind != types.ResourceDatasets && kind != types.ResourceReports {
		return &api.ValidationError{
			Code:  api.CodeInvalidResource,
			Field: "resource_name",
			Value: kind.String(),
			Err:   fmt.Errorf("feedback is only available for datasets and reports"),
		}
	}

	return nil
}
