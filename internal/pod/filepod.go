/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package pod

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FilePOD stores keys as files under a root directory, relpath components
// becoming nested directories. Plain os.* calls; no buffering tricks
// beyond what os.WriteFile already does.
type FilePOD struct {
	root string
}

// NewFilePOD returns a POD rooted at dir. dir is created if missing.
func NewFilePOD(dir string) (*FilePOD, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FilePOD{root: dir}, nil
}

func (f *FilePOD) abs(relpath string) string {
	return filepath.Join(f.root, filepath.FromSlash(Join(relpath)))
}

func (f *FilePOD) Cd(relpath string) POD {
	return &FilePOD{root: f.abs(relpath)}
}

func (f *FilePOD) Read(ctx context.Context, relpath string) ([]byte, error) {
	data, err := os.ReadFile(f.abs(relpath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (f *FilePOD) Write(ctx context.Context, relpath string, data []byte, force bool) (int, bool, error) {
	path := f.abs(relpath)
	if !force {
		if _, err := os.Stat(path); err == nil {
			return 0, false, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return 0, false, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, false, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return 0, false, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, false, err
	}
	return len(data), true, nil
}

func (f *FilePOD) Ls(ctx context.Context, relpath string, missingOK bool) ([]string, error) {
	entries, err := os.ReadDir(f.abs(relpath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && missingOK {
			return nil, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (f *FilePOD) Walk(ctx context.Context, maxDepth int) ([]string, error) {
	var out []string
	base := f.root
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, _ := filepath.Rel(base, path)
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		if maxDepth > 0 {
			depth := len(splitPath(rel))
			if depth > maxDepth {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		if !d.IsDir() {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (f *FilePOD) Rm(ctx context.Context, relpath string, recursive bool) error {
	path := f.abs(relpath)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if info.IsDir() && !recursive {
		entries, err := os.ReadDir(path)
		if err != nil {
			return err
		}
		if len(entries) > 0 {
			return errors.New("pod: " + relpath + " is a non-empty directory")
		}
	}
	return os.RemoveAll(path)
}

func (f *FilePOD) Mv(ctx context.Context, from, to string) error {
	src := f.abs(from)
	dst := f.abs(to)
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

func (f *FilePOD) IsFile(ctx context.Context, relpath string) bool {
	info, err := os.Stat(f.abs(relpath))
	return err == nil && !info.IsDir()
}

func (f *FilePOD) IsDir(ctx context.Context, relpath string) bool {
	info, err := os.Stat(f.abs(relpath))
	return err == nil && info.IsDir()
}
