package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// Member is a file entry of an archive with its re-rooted name
type Member struct {
	Name string
	File *zip.File
}

// Reroot returns the file entries of an archive with the single top-level
// directory shared by all of them removed. Directory entries are excluded.
func Reroot(r *zip.Reader) []Member {
	var files []*zip.File
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir() {
			continue
		}
		files = append(files, f)
	}

	prefix := commonTopDir(files)

	members := make([]Member, 0, len(files))
	for _, f := range files {
		members = append(members, Member{
			Name: strings.TrimPrefix(f.Name, prefix),
			File: f,
		})
	}
	return members
}

// commonTopDir returns "<dir>/" if every file lives under the same first path segment
func commonTopDir(files []*zip.File) string {
	var prefix string
	for _, f := range files {
		i := strings.Index(f.Name, "/")
		if i < 0 {
			return ""
		}
		top := f.Name[:i+1]
		if prefix == "" {
			prefix = top
		} else if prefix != top {
			return ""
		}
	}
	return prefix
}

// rezip re-roots data through the scratch directory and packs it again
func (uc *archiveUseCase) rezip(ctx context.Context, data []byte) ([]byte, error) {
	logger := ctxlog.From(ctx)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create zip reader")
	}

	workDir, release, err := uc.acquireWorkDir(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	members := Reroot(zr)
	for _, m := range members {
		if err := extractMember(m, workDir); err != nil {
			return nil, err
		}
	}
	logger.Debug("Extracted archive", "dir", workDir, "file_count", len(members))

	return packDir(workDir)
}

// acquireWorkDir creates a private directory for one run below the scratch
// directory. Leftovers are purged only while no other run is active, and the
// returned release function always removes the run directory.
func (uc *archiveUseCase) acquireWorkDir(ctx context.Context) (string, func(), error) {
	logger := ctxlog.From(ctx)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.active == 0 {
		if err := os.RemoveAll(uc.scratchDir); err != nil {
			return "", nil, goerr.Wrap(err, "failed to purge scratch directory", goerr.V("dir", uc.scratchDir))
		}
	}
	if err := os.MkdirAll(uc.scratchDir, 0700); err != nil {
		return "", nil, goerr.Wrap(err, "failed to create scratch directory", goerr.V("dir", uc.scratchDir))
	}
	workDir, err := os.MkdirTemp(uc.scratchDir, "run-*")
	if err != nil {
		return "", nil, goerr.Wrap(err, "failed to create work directory", goerr.V("dir", uc.scratchDir))
	}
	uc.active++

	release := func() {
		uc.mu.Lock()
		defer uc.mu.Unlock()

		uc.active--
		target := workDir
		if uc.cleanup && uc.active == 0 {
			target = uc.scratchDir
		}
		if err := os.RemoveAll(target); err != nil {
			logger.Warn("Failed to clean scratch directory", "error", err, "dir", target)
		}
	}
	return workDir, release, nil
}

// extractMember writes one member below destDir, rejecting path traversal
func extractMember(m Member, destDir string) error {
	destPath := filepath.Join(destDir, filepath.FromSlash(m.Name))
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return goerr.New("invalid file path detected", goerr.V("file", m.File.Name), goerr.V("dest", destPath))
	}

	rc, err := m.File.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip", goerr.V("file", m.File.Name))
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("dir", filepath.Dir(destPath)))
	}

	mode := m.File.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}

	if _, err := io.Copy(destFile, rc); err != nil {
		_ = destFile.Close()
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}
	if err := destFile.Close(); err != nil {
		return goerr.Wrap(err, "failed to close destination file", goerr.V("path", destPath))
	}

	// Preserve entry timestamps from the source archive
	modified := m.File.Modified
	if err := os.Chtimes(destPath, modified, modified); err != nil {
		return goerr.Wrap(err, "failed to set file time", goerr.V("path", destPath))
	}
	return nil
}

// packDir zips every regular file under dir in lexical order
func packDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to pack directory", goerr.V("dir", dir))
	}

	if err := zw.Close(); err != nil {
		return nil, goerr.Wrap(err, "failed to finalize zip")
	}
	return buf.Bytes(), nil
}
