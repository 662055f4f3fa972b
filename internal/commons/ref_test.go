package commons

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewReferenceIsUniqueAndSortable(t *testing.T) {
	const n = 1000

	refs := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		ref := NewReference()
		assert.Len(t, ref, 26)
		_, dup := seen[ref]
		assert.False(t, dup, "reference %s repeated", ref)
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	assert.True(t, sort.StringsAreSorted(refs), "references must sort in generation order")
}
