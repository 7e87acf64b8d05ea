package update

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/adamancini/clientsync/internal/types"
)

// sniffLen covers the tar magic at offset 257.
const sniffLen = 262

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
	xzMagic       = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	tarMagic      = []byte("ustar")
)

// DetectFormat identifies an archive by its leading bytes.
func DetectFormat(header []byte) types.ArchiveFormat {
	switch {
	case bytes.HasPrefix(header, zipMagic), bytes.HasPrefix(header, zipEmptyMagic):
		return types.ArchiveZip
	case bytes.HasPrefix(header, gzipMagic):
		return types.ArchiveTarGz
	case bytes.HasPrefix(header, xzMagic):
		return types.ArchiveTarXz
	case len(header) >= 262 && bytes.Equal(header[257:262], tarMagic):
		return types.ArchiveTar
	default:
		return types.ArchiveUnknown
	}
}

// extractor unpacks one archive into dest
type extractor struct {
	archive string
	dest    string
	strip   int
	entries int
}

func (e *extractor) fail(entry string, err error) error {
	return &ExtractionError{Archive: e.archive, Entry: entry, Err: err}
}

func (e *extractor) run() (types.ArchiveFormat, error) {
	f, err := os.Open(e.archive)
	if err != nil {
		return types.ArchiveUnknown, e.fail("", err)
	}
	defer func() { _ = f.Close() }()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return types.ArchiveUnknown, e.fail("", err)
	}

	format := DetectFormat(header[:n])
	if format == types.ArchiveUnknown {
		return format, e.fail("", ErrUnknownFormat)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return format, e.fail("", err)
	}

	switch format {
	case types.ArchiveZip:
		info, err := f.Stat()
		if err != nil {
			return format, e.fail("", err)
		}
		return format, e.extractZip(f, info.Size())
	case types.ArchiveTarGz:
		gzr, err := gzip.NewReader(f)
		if err != nil {
			return format, e.fail("", fmt.Errorf("create gzip reader: %w", err))
		}
		defer func() { _ = gzr.Close() }()
		return format, e.extractTar(gzr)
	case types.ArchiveTarXz:
		xzr, err := xz.NewReader(f)
		if err != nil {
			return format, e.fail("", fmt.Errorf("create xz reader: %w", err))
		}
		return format, e.extractTar(xzr)
	default:
		return format, e.extractTar(f)
	}
}

func (e *extractor) extractZip(r io.ReaderAt, size int64) error {
	zr, err := zip.NewReader(r, size)
	if errors.Is(err, zip.ErrInsecurePath) {
		// Entry names are checked one by one below.
		err = nil
	}
	if err != nil {
		return e.fail("", fmt.Errorf("open zip: %w", err))
	}

	for _, zf := range zr.File {
		target, ok, err := e.targetPath(zf.Name)
		if err != nil {
			return e.fail(zf.Name, err)
		}
		if !ok {
			continue
		}
		if err := e.checkParents(target); err != nil {
			return e.fail(zf.Name, err)
		}

		mode := zf.Mode()
		switch {
		case mode.IsDir():
			err = os.MkdirAll(target, 0755)
		case mode&fs.ModeSymlink != 0:
			err = e.writeZipSymlink(zf, target)
		default:
			err = e.writeZipFile(zf, target)
		}
		if err != nil {
			return e.fail(zf.Name, err)
		}
		e.entries++
	}

	return nil
}

func (e *extractor) writeZipFile(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	return writeFile(target, rc, zf.Mode().Perm())
}

func (e *extractor) writeZipSymlink(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	linkname, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return err
	}
	return e.writeSymlink(target, string(linkname))
}

func (e *extractor) extractTar(r io.Reader) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return e.fail(hdr.Name, ErrUnsafePath)
		}
		if err != nil {
			return e.fail("", fmt.Errorf("read tar: %w", err))
		}

		target, ok, err := e.targetPath(hdr.Name)
		if err != nil {
			return e.fail(hdr.Name, err)
		}
		if !ok {
			continue
		}
		if err := e.checkParents(target); err != nil {
			return e.fail(hdr.Name, err)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0755)
		case tar.TypeReg:
			err = writeFile(target, tr, fs.FileMode(hdr.Mode).Perm())
		case tar.TypeSymlink:
			err = e.writeSymlink(target, hdr.Linkname)
		default:
			// Devices, fifos and hard links are not part of a client build.
			continue
		}
		if err != nil {
			return e.fail(hdr.Name, err)
		}
		e.entries++
	}
}

// targetPath maps an archive entry name to a path under dest.
// ok is false when the entry is consumed entirely by strip components.
func (e *extractor) targetPath(name string) (string, bool, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", false, ErrUnsafePath
		}
	}

	// Leading slashes are dropped so absolute names land under dest.
	clean := strings.TrimPrefix(path.Clean("/"+name), "/")
	if clean == "" {
		return "", false, nil
	}

	parts := strings.Split(clean, "/")
	if len(parts) <= e.strip {
		return "", false, nil
	}
	rel := filepath.FromSlash(strings.Join(parts[e.strip:], "/"))

	return filepath.Join(e.dest, rel), true, nil
}

// writeSymlink creates a link whose target stays inside dest.
// The link text is stored cleaned so ".." only ever leads it; walking up
// from target then crosses real directories, which checkParents guarantees.
func (e *extractor) writeSymlink(target, linkname string) error {
	linkname = path.Clean(strings.ReplaceAll(linkname, "\\", "/"))
	if path.IsAbs(linkname) || filepath.IsAbs(filepath.FromSlash(linkname)) {
		return ErrUnsafePath
	}
	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	rel, err := filepath.Rel(e.dest, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrUnsafePath
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	_ = os.Remove(target)
	return os.Symlink(filepath.FromSlash(linkname), target)
}

// checkParents rejects target when a directory between dest and target is a
// symlink, so no entry is ever written through a link from the archive.
func (e *extractor) checkParents(target string) error {
	rel, err := filepath.Rel(e.dest, filepath.Dir(target))
	if err != nil {
		return ErrUnsafePath
	}
	if rel == "." {
		return nil
	}

	cur := e.dest
	for _, seg := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, seg)
		info, err := os.Lstat(cur)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return ErrUnsafePath
		}
	}
	return nil
}

// writeFile streams r into a new file at target.
func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	if perm == 0 {
		perm = 0644
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	// Replace a link left by an earlier entry instead of writing through it.
	if info, err := os.Lstat(target); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return err
		}
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
