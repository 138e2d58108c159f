package feed

import (
	"github.com/trainee-hub/trainee-events-hub/internal/application/command"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTO -> PIPELINE MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts feed DTOs into the tabular form the reconciliation
// pipeline consumes.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// FeedFromDTO maps a fetched document onto a TabularFeed. Row numbers are
// assigned here, 1-based over the raw rows, so error reports point at the
// row the operator sees in the export.
func (m *Mapper) FeedFromDTO(dto *FeedDocumentDTO) *command.TabularFeed {
	feed := &command.TabularFeed{
		Headers: dto.Headers,
		Rows:    make([]command.FeedRow, 0, len(dto.Rows)),
	}

	for i, row := range dto.Rows {
		feed.Rows = append(feed.Rows, command.FeedRow{
			Number: i + 1,
			Cells:  row.Cells,
			Fields: row.Fields,
		})
	}
	return feed
}
