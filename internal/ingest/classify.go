package ingest

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	markerEightyEight = "-88"
	markerThirtyTwo   = "F32"
)

// Classify derives the card kind from the path string alone. The 88 marker
// wins when both markers are present.
func Classify(path string) (CardKind, error) {
	switch {
	case strings.Contains(path, markerEightyEight):
		return EightyEight, nil
	case strings.Contains(path, markerThirtyTwo):
		return ThirtyTwo, nil
	default:
		return KindUnknown, Wrap(ErrUnsupportedFormat, "detector", "classify",
			fmt.Sprintf("%q carries neither %q nor %q", filepath.Base(path), markerEightyEight, markerThirtyTwo), nil)
	}
}
