package fetch

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/forage/internal/core/domain"
	"go.trai.ch/zerr"
)

// fetchTar downloads a gzipped tar archive and unpacks it into dest,
// preserving the archive's own top-level layout.
func (f *Fetcher) fetchTar(ctx context.Context, src domain.Tar, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "invalid archive url"), "url", src.URL)
	}

	f.logger.Info("downloading " + src.URL)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to download archive"), "url", src.URL)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return zerr.With(zerr.With(zerr.New("unexpected response status"), "url", src.URL), "status", resp.Status)
	}

	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create target directory"), "dir", dest)
	}
	return unpack(resp.Body, dest)
}

// unpack decompresses and extracts the archive stream into dest. Entries
// whose names escape dest are rejected rather than skipped, since an
// archive carrying them cannot be trusted at all.
func unpack(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return zerr.Wrap(err, "failed to decompress archive")
	}
	defer gz.Close() //nolint:errcheck // Best effort close in defer

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.Wrap(err, "failed to read archive")
		}
		if err := extract(tr, hdr, dest); err != nil {
			return err
		}
	}
}

func extract(tr *tar.Reader, hdr *tar.Header, dest string) error {
	name := filepath.FromSlash(hdr.Name)
	if !filepath.IsLocal(name) {
		return zerr.With(zerr.New("archive entry escapes target directory"), "entry", hdr.Name)
	}
	target := filepath.Join(dest, name)

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, domain.DirPerm)
	case tar.TypeReg:
		return writeFile(tr, hdr, target)
	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create directory"), "entry", hdr.Name)
		}
		return os.Symlink(hdr.Linkname, target)
	default:
		// Hard links, devices and the like do not occur in source
		// archives worth supporting.
		return nil
	}
}

func writeFile(tr *tar.Reader, hdr *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "entry", hdr.Name)
	}

	mode := os.FileMode(hdr.Mode).Perm() //nolint:gosec // header mode fits in FileMode
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode) //nolint:gosec // name checked by extract
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create file"), "entry", hdr.Name)
	}
	if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // archive comes from a declared source
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to extract file"), "entry", hdr.Name)
	}
	return out.Close()
}
