package archive

import (
	"time"

	"github.com/aevon-lab/activity-archive/internal/core/transform"
)

// sweep carries what every loader of one invocation shares. It is built once
// by LoadArchive and never modified.
type sweep struct {
	generation  uint64
	id          string
	now         time.Time
	subjectIDs  []int64
	transformer *transform.Transformer
}
