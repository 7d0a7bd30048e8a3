// Package dedupe keeps one canonical record per business identity across
// repeated discovery queries.
package dedupe

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/outreach-cli/internal/model"
)

var fold = cases.Fold()

// Key derives the deduplication identity key from a business name and
// address. Comparison is case-insensitive and whitespace-normalized, so the
// same entity returned by different query terms maps to the same key.
func Key(name, address string) string {
	return normalize(name) + "|" + normalize(address)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(fold.String(s)), " ")
}

// Index tracks seen identity keys and the canonical record per key.
// Not safe for concurrent use; discovery feeds it sequentially.
type Index struct {
	seen map[string]*model.Record
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{seen: make(map[string]*model.Record)}
}

// Insert computes the record's identity key and adds it only if no record
// with that key exists yet. First-seen wins: later duplicates are discarded
// entirely and Insert returns false.
func (ix *Index) Insert(r *model.Record) bool {
	key := Key(r.Name, r.Address)
	if _, dup := ix.seen[key]; dup {
		return false
	}
	r.IdentityKey = key
	ix.seen[key] = r
	return true
}

// Len returns the number of unique records inserted.
func (ix *Index) Len() int { return len(ix.seen) }
