package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
	"github.com/trainee-hub/trainee-events-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CSV FILE FETCHER
// Some departments never got API access and drop their sign-in sheets into a
// shared directory instead. This fetcher reads those files so both delivery
// paths feed the same reconciliation pipeline.
// ══════════════════════════════════════════════════════════════════════════════

// CSVFetcher reads tabular feeds from CSV files in a directory.
// It implements command.FeedFetcher; the source name maps to
// <dir>/<source>.csv.
type CSVFetcher struct {
	dir string
}

var _ command.FeedFetcher = (*CSVFetcher)(nil)

// NewCSVFetcher creates a CSVFetcher rooted at dir.
func NewCSVFetcher(dir string) *CSVFetcher {
	return &CSVFetcher{dir: dir}
}

// Fetch reads and parses the CSV file for the given source.
// The first row is passed through as-is; header detection happens downstream.
func (f *CSVFetcher) Fetch(ctx context.Context, source string) (*command.TabularFeed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.sourcePath(source)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open feed %q: %w", source, shared.ErrFeedUnavailable)
		}
		return nil, fmt.Errorf("open feed %q: %w", source, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // exports vary in width, validate downstream
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse feed %q: %w", source, err)
	}

	feed := &command.TabularFeed{
		Rows: make([]command.FeedRow, 0, len(records)),
	}
	for i, record := range records {
		feed.Rows = append(feed.Rows, command.FeedRow{
			Number: i + 1,
			Cells:  record,
		})
	}
	return feed, nil
}

// sourcePath resolves the source name to a file path, rejecting names that
// would escape the feed directory.
func (f *CSVFetcher) sourcePath(source string) (string, error) {
	if source == "" || strings.ContainsAny(source, `/\`) || strings.Contains(source, "..") {
		return "", fmt.Errorf("invalid feed source %q", source)
	}
	return filepath.Join(f.dir, source+".csv"), nil
}
