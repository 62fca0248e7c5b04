package portal

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var ErrCredentialUnresolved = errors.New("document credential unresolved")

var credentialRegex = regexp.MustCompile(`PdfHandler\.axd\?key=([0-9a-f]{32})(?:[^0-9a-fA-F]|$)`)

// ExtractCredential finds the per-document download key in the viewer's
// reference url.
func ExtractCredential(ref string) (string, bool) {
	groups := credentialRegex.FindStringSubmatch(ref)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

const downloadPath = "/Public/PdfHandler.axd"

// BuildDownloadURL returns the url the document behind key is downloaded from,
// it is relative to the portal's origin.
func BuildDownloadURL(key string) string {
	return downloadPath + "?key=" + key + "&format=pdf&download=true"
}

func (s *Scraper) findCredential(ctx context.Context) (string, bool) {
	frames, err := s.browser.Frames(ctx)
	if err != nil {
		s.tel.ReportDebug("failed to list frames", err)
		return "", false
	}

	layout := s.opts.Layout
	for i, frame := range frames {
		n, err := frame.Count(ctx, layout.ViewerElement)
		if err != nil || n == 0 {
			continue
		}
		ref, err := frame.Attribute(ctx, layout.ViewerElement, layout.ViewerAttribute)
		if err != nil {
			s.tel.ReportDebug("failed to read viewer reference", i, err)
			continue
		}
		if ref == nil {
			continue
		}
		key, ok := ExtractCredential(*ref)
		if ok {
			return key, true
		}
		s.tel.ReportDebug("viewer reference has no credential", i, *ref)
	}
	return "", false
}

// resolveCredential polls the page's frames for the document viewer, the
// viewer's frame is usually attached some time after the view is opened.
func (s *Scraper) resolveCredential(ctx context.Context) (string, error) {
	attempts := s.opts.Timing.CredentialAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		key, ok := s.findCredential(ctx)
		if ok {
			return key, nil
		}
		if attempt == attempts {
			break
		}
		err := s.browser.Wait(ctx, s.opts.Timing.CredentialInterval.Std())
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrCredentialUnresolved, attempts)
}
