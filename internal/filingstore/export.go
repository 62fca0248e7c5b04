package filingstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExportedFile is one document written by Export.
type ExportedFile struct {
	FilingID int64
	Path     string
	Size     int
}

func exportName(stored StoredFiling, used map[string]bool) string {
	name := stored.FileName
	if !used[name] {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), stored.ID, ext)
}

// Export writes every stored document into dir, named by its stored file
// name, in order of filing date and then id. Names that were already written
// during this export get "-<id>" appended before the extension.
func (s Store) Export(ctx context.Context, dir string) ([]ExportedFile, error) {
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	filings, err := s.List(ctx, ListFilter{})
	if err != nil {
		return nil, err
	}

	used := map[string]bool{}
	var out []ExportedFile
	for _, stored := range filings {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		content, err := s.Blob(ctx, stored.ID)
		if err != nil {
			return out, fmt.Errorf("filing %d: %w", stored.ID, err)
		}

		name := exportName(stored, used)
		used[name] = true
		path := filepath.Join(dir, name)
		err = os.WriteFile(path, content, 0666)
		if err != nil {
			return out, fmt.Errorf("write %s: %w", path, err)
		}
		out = append(out, ExportedFile{
			FilingID: stored.ID,
			Path:     path,
			Size:     len(content),
		})
	}
	return out, nil
}
