package resolution

import (
	"path"
	"strings"

	"hr_records/internal/drive"

	"github.com/rs/zerolog/log"
)

// FileDirectory maps lowercase file names to storage identifiers. Every file
// is indexed under its full name and under its name without extension.
type FileDirectory map[string]string

// NewFileDirectory indexes a folder listing. A full-name key always wins
// over an extension-stripped key of another file.
func NewFileDirectory(files []drive.File) FileDirectory {
	dir := make(FileDirectory, len(files)*2)
	for _, f := range files {
		dir[strings.ToLower(f.Name)] = f.ID
	}
	for _, f := range files {
		name := strings.ToLower(f.Name)
		stem := strings.TrimSuffix(name, path.Ext(name))
		if stem == name || stem == "" {
			continue
		}
		if _, taken := dir[stem]; !taken {
			dir[stem] = f.ID
		}
	}
	log.Debug().Int("files", len(files)).Int("keys", len(dir)).Msg("Built file directory")
	return dir
}

// ResolveFileReference looks up rawID+".pdf" first and rawID as-is second,
// both lowercased. An empty rawID never matches.
func ResolveFileReference(dir FileDirectory, rawID string) (string, bool) {
	if rawID == "" {
		return "", false
	}
	withExt := strings.ToLower(rawID + ".pdf")
	if id, ok := dir[withExt]; ok {
		return id, true
	}
	if id, ok := dir[strings.ToLower(rawID)]; ok {
		return id, true
	}
	return "", false
}
