// Package scanner walks a repository tree and lists files worth indexing.
package scanner

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
)

// FileRecord describes one candidate file found during a scan.
type FileRecord struct {
	// Path is relative to the scan root, using forward slashes.
	Path string `json:"path"`
	// SizeKB is the file size in kilobytes, rounded to two decimals.
	// Zero when the size could not be read.
	SizeKB float64 `json:"size_kb"`
	// Ext is the file extension including the leading dot.
	Ext string `json:"ext"`
}

// Options configures a scan.
type Options struct {
	// Extensions is the allow-list of file extensions (with leading dot).
	Extensions []string
	// IgnoreDirs is the deny-list of directory names pruned before descent.
	IgnoreDirs []string
	// HiddenPrefix marks directories to prune by name prefix.
	// Default: ".".
	HiddenPrefix string
}

// Scan walks the tree at root depth-first and returns a record for every
// file whose extension is in the allow-list.
//
// Directories in the deny-list or starting with the hidden prefix are
// pruned before descent, so huge dependency trees cost nothing. File sizes
// are read best-effort: a stat failure produces a record with size zero
// rather than aborting the scan. Output order is the filesystem walk
// order; callers must not rely on it beyond display.
func Scan(root string, opts Options) ([]FileRecord, error) {
	if opts.HiddenPrefix == "" {
		opts.HiddenPrefix = "."
	}

	allowed := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[strings.ToLower(ext)] = true
	}
	ignored := make(map[string]bool, len(opts.IgnoreDirs))
	for _, dir := range opts.IgnoreDirs {
		ignored[dir] = true
	}

	var records []FileRecord
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if ignored[name] || strings.HasPrefix(name, opts.HiddenPrefix) {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		if !allowed[ext] {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("computing relative path for %s: %w", path, err)
		}

		var sizeKB float64
		if info, infoErr := d.Info(); infoErr == nil {
			sizeKB = math.Round(float64(info.Size())/1024*100) / 100
		}

		records = append(records, FileRecord{
			Path:   filepath.ToSlash(rel),
			SizeKB: sizeKB,
			Ext:    ext,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return records, nil
}
