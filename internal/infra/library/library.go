// Package library scans a local music directory and reads embedded tags.
package library

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"
)

// DefaultExtensions are the formats the speaker output can decode.
var DefaultExtensions = []string{".mp3", ".flac", ".wav"}

// Entry is one audio file with its tag metadata.
type Entry struct {
	Path   string
	Title  string // Tag title, or the file name without extension
	Artist string
	Album  string
	Genre  string
}

// Scan walks root and returns an entry for every file with a matching extension,
// sorted by path. Files whose tags cannot be read keep file-name metadata.
func Scan(root string, extensions []string) ([]Entry, error) {
	if root == "" {
		return nil, errors.New("library root is required")
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !hasExtension(path, extensions) {
			return nil
		}
		entries = append(entries, readEntry(path))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to scan %s", root)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func readEntry(path string) Entry {
	entry := Entry{
		Path:  path,
		Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	file, err := os.Open(path)
	if err != nil {
		zlog.Debug().Err(err).Msgf("library: failed to open: path=%s", path)
		return entry
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		return entry
	}

	if title := strings.TrimSpace(metadata.Title()); title != "" {
		entry.Title = title
	}
	entry.Artist = strings.TrimSpace(metadata.Artist())
	entry.Album = strings.TrimSpace(metadata.Album())
	entry.Genre = strings.TrimSpace(metadata.Genre())
	return entry
}
