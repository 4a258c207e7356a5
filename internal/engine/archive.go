package engine

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"pixibuild/internal/errors"
)

// writeArchive packs the contents of dir into a zstd-compressed tar at
// path and returns the hex sha256 of the archive bytes.
func writeArchive(path, dir string, level int) (string, error) {
	out, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(errors.ArtifactIO, "failed to create package archive", err)
	}
	defer out.Close()

	hasher := sha256.New()
	encoder, err := zstd.NewWriter(io.MultiWriter(out, hasher),
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return "", errors.Wrap(errors.ArtifactIO, "failed to initialize compressor", err)
	}
	tw := tar.NewWriter(encoder)

	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
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
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(p); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if d.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if walkErr != nil {
		tw.Close()
		encoder.Close()
		return "", errors.Wrap(errors.ArtifactIO, "failed to archive build prefix", walkErr)
	}

	if err := tw.Close(); err != nil {
		encoder.Close()
		return "", errors.Wrap(errors.ArtifactIO, "failed to finalize archive", err)
	}
	if err := encoder.Close(); err != nil {
		return "", errors.Wrap(errors.ArtifactIO, "failed to finalize archive", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
