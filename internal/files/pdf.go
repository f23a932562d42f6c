package files

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var pdfMagic = []byte("%PDF-")

var disableConfigDir sync.Once

// ValidatePDF checks that data is a readable PDF document. Portals answer
// expired or missing documents with an HTML page and a 200 status, which
// must not be stored as a bill.
func ValidatePDF(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty document")
	}
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), pdfMagic) {
		return fmt.Errorf("document is not a PDF (starts with %q)", head(data, 16))
	}

	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return fmt.Errorf("invalid PDF document: %w", err)
	}
	return nil
}

func head(data []byte, n int) []byte {
	if len(data) < n {
		return data
	}
	return data[:n]
}
