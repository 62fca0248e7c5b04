package portal

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrInvalidArtifact = errors.New("invalid artifact")

const (
	minArtifactSize = 100
	previewSize     = 32
)

var pdfSignature = []byte{0x25, 0x50, 0x44, 0x46}

func preview(content []byte) string {
	n := min(len(content), previewSize)
	return strconv.Quote(string(content[:n]))
}

// ValidateArtifact accepts content only if it is longer than 100 bytes and
// starts with the pdf signature "%PDF". The error carries the first bytes of
// content, usually an html error page.
func ValidateArtifact(content []byte) error {
	if len(content) <= minArtifactSize {
		return fmt.Errorf(
			"%w: only %d bytes, starts with %s",
			ErrInvalidArtifact, len(content), preview(content),
		)
	}
	if !bytes.HasPrefix(content, pdfSignature) {
		return fmt.Errorf(
			"%w: missing pdf signature, starts with %s",
			ErrInvalidArtifact, preview(content),
		)
	}
	return nil
}

func IsValidArtifact(content []byte) bool {
	return ValidateArtifact(content) == nil
}

// PageCount reads the number of pages of a validated artifact.
func PageCount(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(content), conf)
}
