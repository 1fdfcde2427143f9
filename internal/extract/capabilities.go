package extract

import "strings"

// Capability names accepted in the extraction.disabled setting.
const (
	CapPDFPrimary   = "pdf-primary"
	CapPDFSecondary = "pdf-secondary"
	CapWord         = "word"
)

// Capabilities is the availability table the dispatcher consults. It is
// resolved once, when the extractor is built, and never re-probed.
type Capabilities struct {
	PDFPrimary   bool
	PDFSecondary bool
	Word         bool
}

// ProbeCapabilities reports every compiled-in method as available unless it
// appears in disabled.
func ProbeCapabilities(disabled []string) Capabilities {
	off := make(map[string]bool, len(disabled))
	for _, name := range disabled {
		off[strings.ToLower(strings.TrimSpace(name))] = true
	}
	return Capabilities{
		PDFPrimary:   !off[CapPDFPrimary],
		PDFSecondary: !off[CapPDFSecondary],
		Word:         !off[CapWord],
	}
}
