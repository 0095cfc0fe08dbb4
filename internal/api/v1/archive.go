package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ArchiveItem is one displayable activity in a user's history.
// Items are immutable once fetched; the engine only reorders and filters them.
type ArchiveItem struct {
	// ID is the activity identifier. Assigned on ingestion when the client omits it.
	ID string `json:"id" yaml:"id"`

	// SubjectID identifies whose activity this is (e.g. a pupil of the requesting coach).
	// The archive allow-list filters on this field.
	SubjectID int64 `json:"subject_id" yaml:"subject_id"`

	// OrderDate is the ordering key. Archives are presented newest first.
	OrderDate time.Time `json:"order_date" yaml:"order_date"`

	// --- Display fields ---

	Kind  string          `json:"kind,omitempty" yaml:"kind"`
	Title string          `json:"title,omitempty" yaml:"title"`
	Value decimal.Decimal `json:"value" yaml:"value"`
}

// Validate ensures the item carries the attributes the archive depends on.
func (i *ArchiveItem) Validate() error {
	if i.SubjectID <= 0 {
		return fmt.Errorf("subject_id is required")
	}

	if i.OrderDate.IsZero() {
		return fmt.Errorf("order_date is required")
	}

	return nil
}

// ArchiveRecord is the aggregate answer of the remote source for one time range.
// RangeStart is the newer bound and RangeEnd the older one, matching the
// backwards direction in which the archive is swept.
type ArchiveRecord struct {
	RangeStart time.Time     `json:"range_start"`
	RangeEnd   time.Time     `json:"range_end"`
	Items      []ArchiveItem `json:"items"`
}

// Len returns the number of items in the record. A nil record has none.
func (r *ArchiveRecord) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}
