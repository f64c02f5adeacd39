package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// filesystemScanner walks a directory tree and reports regular files as
// assets. Hidden directories are skipped; extensions can narrow the walk.
type filesystemScanner struct {
	root       string
	extensions map[string]struct{}
}

// NewFilesystemScanner builds a filesystem scanner from a config with keys
// root (required) and extensions (optional comma list, e.g. "csv,xlsx,json").
func NewFilesystemScanner(config map[string]string) (Scanner, error) {
	root := config["root"]
	if root == "" {
		return nil, fmt.Errorf("%w: filesystem scanner requires root", ErrInvalidConfig)
	}
	s := &filesystemScanner{root: root}
	if raw := config["extensions"]; raw != "" {
		s.extensions = make(map[string]struct{})
		for _, ext := range strings.Split(raw, ",") {
			ext = strings.TrimSpace(strings.TrimPrefix(ext, "."))
			if ext != "" {
				s.extensions[strings.ToLower(ext)] = struct{}{}
			}
		}
	}
	return s, nil
}

func (s *filesystemScanner) Connect(ctx context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("scan root %q does not exist", s.root)
		}
		return fmt.Errorf("%w: stat root: %v", ErrTransient, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: root %q is not a directory", ErrInvalidConfig, s.root)
	}
	return nil
}

func (s *filesystemScanner) Discover(ctx context.Context, opts DiscoverOptions) (Discovery, error) {
	d := Discovery{Metadata: map[string]string{"root": s.root}}
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if entry.IsDir() {
			if name := entry.Name(); strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if !s.wantExtension(entry.Name()) {
			return nil
		}
		if opts.MaxAssets > 0 && len(d.Assets) >= opts.MaxAssets {
			return filepath.SkipAll
		}
		info, ierr := entry.Info()
		if ierr != nil {
			return nil
		}
		d.Assets = append(d.Assets, Asset{
			Name:     entry.Name(),
			Location: path,
			Metadata: map[string]string{
				"size_bytes": strconv.FormatInt(info.Size(), 10),
				"modified":   info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
			},
		})
		return nil
	})
	if err != nil {
		return Discovery{}, fmt.Errorf("walk %q: %w", s.root, err)
	}
	d.Count = len(d.Assets)
	return d, nil
}

func (s *filesystemScanner) Metadata(ctx context.Context, assetName string) (map[string]string, error) {
	path := assetName
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %q: %w", path, err)
	}
	return map[string]string{
		"path":       path,
		"size_bytes": strconv.FormatInt(info.Size(), 10),
		"modified":   info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
	}, nil
}

func (s *filesystemScanner) Close() error { return nil }

func (s *filesystemScanner) wantExtension(name string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s.extensions[ext]
	return ok
}
