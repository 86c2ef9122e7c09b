// Package change decides whether a freshly computed hash differs from the
// last recorded hash for the same logical key. Detection is local and pure;
// fetch failures are the calling stage's concern.
package change

// Result is the outcome of comparing one key's hashes.
type Result struct {
	Key     string
	Changed bool
}

// Detect compares newHash against the previously recorded hash for key.
// An absent previous hash counts as changed: there is no meaningful
// "unchanged" state before any baseline exists.
func Detect(key, newHash string, previousHash *string) Result {
	if previousHash == nil {
		return Result{Key: key, Changed: true}
	}
	return Result{Key: key, Changed: newHash != *previousHash}
}

// AggregateChanges returns the keys whose content changed, preserving the
// order the results were produced in. The gather stage stores this as
// changes_detected; it is derived on every run, never carried forward.
func AggregateChanges(results []Result) []string {
	changed := []string{}
	for _, r := range results {
		if r.Changed {
			changed = append(changed, r.Key)
		}
	}
	return changed
}
