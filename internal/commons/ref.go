package commons

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	refMu sync.Mutex
	// Monotonic entropy keeps references sortable even when several
	// postings land within the same millisecond.
	refMono = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewReference returns the audit reference attached to a ledger posting.
// Both legs of a transfer carry the same reference.
func NewReference() string {
	refMu.Lock()
	defer refMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), refMono).String()
}
