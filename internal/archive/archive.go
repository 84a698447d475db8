// Package archive keeps raw fetched documents around for later inspection.
// Archiving is best-effort: the pipeline logs failures and moves on.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
)

// objectPath derives the storage key for one document: the URL hash keeps
// keys filesystem-safe and stable across runs of the same post.
func objectPath(prefix, runID, url string) string {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:]) + ".txt"
	if prefix == "" {
		return path.Join(runID, name)
	}
	return path.Join(prefix, runID, name)
}
