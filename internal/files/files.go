// Package files writes downloaded bill documents to local disk or to a
// Google Cloud Storage bucket.
package files

import (
	"context"
	"path"
	"strings"

	"github.com/SomeAverageDev/konnectors/internal/dateutils"
	"github.com/SomeAverageDev/konnectors/internal/models"
)

// DefaultExtension is appended to generated document names.
const DefaultExtension = ".pdf"

// Store persists documents. Put is idempotent: writing a name that already
// exists keeps the existing content and is not an error.
type Store interface {
	// Put writes data as folder/name and returns the location it was stored at.
	Put(ctx context.Context, folder, name string, data []byte) (string, error)
}

// FileName builds the document name of a bill, e.g. 20240110_edf.pdf for the
// YYYYMMDD pattern.
func FileName(bill models.Bill, pattern string) string {
	if pattern == "" {
		pattern = dateutils.DefaultFilePattern
	}
	return dateutils.FormatPattern(bill.Date, pattern) + "_" + bill.Vendor + DefaultExtension
}

// objectPath joins folder and name into a slash separated relative path.
// Leading slashes and parent references are dropped so a folder can never
// escape the store root.
func objectPath(folder, name string) string {
	p := path.Clean("/" + strings.ReplaceAll(folder, "\\", "/") + "/" + name)
	return strings.TrimPrefix(p, "/")
}
