package main

import (
	"crypto/md5"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Hasher content-addresses a file or directory tree into a 32-character
// lowercase hex MD5 digest. MD5 is chosen only to match the manifest
// format of the external build tool this engine stands in for (spec.md
// §4.1) — it carries no cryptographic weight here, same rationale as the
// teacher's computeSourceHash in main.go.
type Hasher struct{}

// Digest hashes a single path: a regular file's bytes, or a directory's
// files in sorted relative-path order (path bytes, a NUL separator, file
// bytes, a NUL separator, fed into one running MD5 state). Symlinks are
// followed; anything that is not a regular file or directory is an error.
func (Hasher) Digest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
		}
		return "", fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
	}

	h := md5.New()
	if info.IsDir() {
		if err := hashDir(h, path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
		}
	} else if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s: unsupported file type", ErrHashUnavailable, path)
	} else {
		if err := hashFile(h, path); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

// Size returns a file's byte size, or the sum of all contained regular
// files' sizes for a directory.
func (Hasher) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrHashUnavailable, path, err)
	}
	return total, nil
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(h, f)
	return err
}

// hashDir walks root (following symlinks, via os.Stat rather than
// filepath.WalkDir's Lstat-based traversal), collects regular-file
// relative paths (normalized to forward slashes), sorts them
// lexicographically, then feeds path+NUL+content+NUL for each into h in
// that order. This makes the digest a function of both directory
// structure and file content.
func hashDir(h io.Writer, root string) error {
	var rels []string
	if err := walkFollowingSymlinks(root, root, &rels); err != nil {
		return err
	}
	sort.Strings(rels)

	for _, rel := range rels {
		if _, err := io.WriteString(h, rel); err != nil {
			return err
		}
		if _, err := h.Write([]byte{0}); err != nil {
			return err
		}
		if err := hashFile(h, filepath.Join(root, rel)); err != nil {
			return err
		}
		if _, err := h.Write([]byte{0}); err != nil {
			return err
		}
	}
	return nil
}

// walkFollowingSymlinks recurses through dir, appending forward-slash
// relative paths (from root) of every regular file to *rels. Directory
// symlinks are descended into; a path that is neither a directory nor a
// regular file after following symlinks is a special-file error.
func walkFollowingSymlinks(root, dir string, rels *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		info, err := os.Stat(p) // follows symlinks
		if err != nil {
			return err
		}
		switch {
		case info.IsDir():
			if err := walkFollowingSymlinks(root, p, rels); err != nil {
				return err
			}
		case info.Mode().IsRegular():
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			*rels = append(*rels, filepath.ToSlash(rel))
		default:
			return fmt.Errorf("unsupported file type at %s", p)
		}
	}
	return nil
}
