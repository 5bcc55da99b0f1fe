// Package export drains a paginated API collection into one or more sinks as
// newline-delimited JSON.
//
// A run pulls every page from an api.PageIterator, extracts the records of
// each page, writes them as a single NDJSON object to each configured Sink
// and optionally announces the result through a Notifier. Sinks include the
// local filesystem and S3, where objects are gzip compressed and optionally
// protected with KMS envelope encryption.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/mopinion/mopinion-go/api"
	"github.com/mopinion/mopinion-go/catalog"
)

// Options configures a run.
type Options struct {
	// Name is the object name prefix, e.g. "datasets/42/feedback".
	// Default: the iterator's starting endpoint path
	Name string

	// RunID identifies the run in object names and notifications.
	// Default: a random UUID
	RunID string

	// Sinks receive the exported object. At least one is required.
	Sinks []Sink

	// Notifier, when set, is told about a run after every sink succeeded.
	Notifier Notifier

	// MaxPages stops the run early. 0 means all pages.
	MaxPages int

	Logger hclog.Logger
}

// Summary describes a finished run.
type Summary struct {
	RunID     string    `json:"run_id"`
	Endpoint  string    `json:"endpoint"`
	Pages     int       `json:"pages"`
	Records   int       `json:"records"`
	SizeBytes int       `json:"size_bytes"`
	Locations []string  `json:"locations"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`

	// FieldFillRate is the percentage of records in which each field is
	// present and non-empty. Nested fields use dot notation.
	FieldFillRate map[string]float64 `json:"field_fill_rate"`
}

// Run exports every page of it. When a page cannot be fetched the run stops
// and nothing is written; the returned Summary covers the pages pulled so far.
// Sink failures are collected, so one failing sink does not prevent the
// others from receiving the object.
func Run(ctx context.Context, it *api.PageIterator, opts Options) (*Summary, error) {
	if len(opts.Sinks) == 0 {
		return nil, errors.New("export: at least one sink is required")
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Name == "" {
		opts.Name = it.Cursor().Path
	}
	// Object keys are relative to the sink root.
	opts.Name = strings.TrimLeft(opts.Name, "/")

	logger := opts.Logger.With("run_id", opts.RunID)

	summary := &Summary{
		RunID:     opts.RunID,
		Endpoint:  it.Cursor().String(),
		StartedAt: time.Now().UTC(),
	}

	var (
		buf   bytes.Buffer
		stats = newFieldStats()
	)

	for opts.MaxPages == 0 || summary.Pages < opts.MaxPages {
		page, err := it.Next(ctx)
		if errors.Is(err, api.ErrIterationExhausted) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("failed to fetch page %d: %w", summary.Pages+1, err)
		}

		body, err := page.Map()
		if err != nil {
			return summary, fmt.Errorf("failed to decode page %d: %w", summary.Pages+1, err)
		}

		records := catalog.Records(body)
		for _, record := range records {
			line, err := json.Marshal(record)
			if err != nil {
				return summary, fmt.Errorf("failed to encode record: %w", err)
			}

			buf.Write(line)
			buf.WriteByte('\n')

			if obj, ok := record.(map[string]any); ok {
				stats.add(obj)
			}
		}

		summary.Pages++
		summary.Records += len(records)

		logger.Debug("exported page", "page", summary.Pages, "records", len(records), "endpoint", page.Endpoint.String())
	}

	summary.SizeBytes = buf.Len()
	summary.FieldFillRate = stats.fillRates()

	key := path.Join(opts.Name, opts.RunID+".ndjson")

	var result *multierror.Error
	for _, sink := range opts.Sinks {
		location, err := sink.Put(ctx, key, buf.Bytes())
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", sink, err))
			continue
		}

		summary.Locations = append(summary.Locations, location)
		logger.Info("wrote export", "location", location, "bytes", buf.Len())
	}

	summary.Duration = time.Since(summary.StartedAt).Round(time.Millisecond).String()

	if err := result.ErrorOrNil(); err != nil {
		return summary, err
	}

	if opts.Notifier != nil {
		if err := opts.Notifier.Notify(ctx, summary); err != nil {
			return summary, fmt.Errorf("failed to send export notification: %w", err)
		}
	}

	logger.Info("export complete", "pages", summary.Pages, "records", summary.Records)

	return summary, nil
}
