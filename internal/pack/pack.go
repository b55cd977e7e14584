// Package pack produces the compressed archive artifact for a batch
// directory. The codec is tar+gzip; anything that reproduces the directory's
// file set on extraction would satisfy the same contract.
package pack

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// Extension is the artifact suffix produced by the tar.gz packer.
const Extension = ".tar.gz"

// Packer bundles a directory's contents into a single artifact file.
type Packer interface {
	Pack(ctx context.Context, sourceDir, destPath string) error
}

// TarGz is the tar+gzip Packer. Output is deterministic for an identical
// input tree: walk order is lexical and the gzip header carries no
// timestamp.
type TarGz struct{}

// NewTarGz creates a tar.gz packer.
func NewTarGz() *TarGz { return &TarGz{} }

var _ Packer = (*TarGz)(nil)

// Pack writes a tar.gz of sourceDir's contents to destPath. Entry names are
// relative to sourceDir. Regular files and directories are included;
// anything else (symlinks, devices) is skipped.
func (p *TarGz) Pack(_ context.Context, sourceDir, destPath string) error {
	if _, err := os.Stat(sourceDir); err != nil {
		return fmt.Errorf("stat source directory: %w", err)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case info.Mode().IsDir():
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = filepath.ToSlash(rel) + "/"
			return tw.WriteHeader(hdr)
		case info.Mode().IsRegular():
			hdr, err := tar.FileInfoHeader(info, "")
			if err != nil {
				return err
			}
			hdr.Name = filepath.ToSlash(rel)
			if err := tw.WriteHeader(hdr); err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			_, err = io.Copy(tw, f)
			f.Close()
			return err
		default:
			// Symlinks and special files are not part of batch data.
			return nil
		}
	})

	if walkErr != nil {
		tw.Close()
		gz.Close()
		out.Close()
		_ = os.Remove(destPath)
		return fmt.Errorf("pack %s: %w", sourceDir, walkErr)
	}

	for _, c := range []io.Closer{tw, gz, out} {
		if err := c.Close(); err != nil {
			_ = os.Remove(destPath)
			return fmt.Errorf("finalize artifact: %w", err)
		}
	}
	return nil
}
