package sqlite

import (
	"net/url"
	"strings"

	"github.com/syssam/velite/dialect"
)

// MemoryPath is the path of a private in-memory database.
const MemoryPath = ":memory:"

// IsMemory reports whether path names an in-memory database.
func IsMemory(path string, flags dialect.OpenFlags) bool {
	return path == "" || path == MemoryPath || flags.Has(dialect.OpenMemory) ||
		strings.Contains(path, "mode=memory")
}

// DSN builds the driver data source name for path opened with flags.
//
//	DSN("app.db", dialect.OpenReadOnly)  // file:app.db?mode=ro
//	DSN("app.db", dialect.OpenDefault)   // file:app.db?mode=rwc
//	DSN(":memory:", dialect.OpenDefault) // :memory:
func DSN(path string, flags dialect.OpenFlags) string {
	if path == "" || path == MemoryPath {
		return MemoryPath
	}
	if flags.Has(dialect.OpenURI) || strings.HasPrefix(path, "file:") {
		return path
	}
	q := url.Values{}
	switch {
	case flags.Has(dialect.OpenMemory):
		q.Set("mode", "memory")
	case flags.Has(dialect.OpenReadWrite | dialect.OpenCreate):
		q.Set("mode", "rwc")
	case flags.Has(dialect.OpenReadWrite):
		q.Set("mode", "rw")
	case flags.Has(dialect.OpenReadOnly):
		q.Set("mode", "ro")
	default:
		q.Set("mode", "rwc")
	}
	switch {
	case flags.Has(dialect.OpenSharedCache):
		q.Set("cache", "shared")
	case flags.Has(dialect.OpenPrivateCache):
		q.Set("cache", "private")
	}
	u := url.URL{Path: path}
	return "file:" + u.EscapedPath() + "?" + q.Encode()
}
