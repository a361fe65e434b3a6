package sinks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/briefly/internal/filex"
)

// LocalSink saves files under a directory. An existing file is never
// overwritten; a numbered name is picked instead.
type LocalSink struct {
	dir string
}

func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{dir: dir}
}

// Save writes data to a temporary file and links it into place, so a
// partially written download never shows up under its final name.
func (s *LocalSink) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir, err := filex.EnsureDir(s.dir)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, ".briefly-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", tmpName, err)
	}

	return claim(tmpName, dir, filex.SafeName(name, "download"))
}

// linkFile is swapped in tests to simulate a competing writer.
var linkFile = os.Link

const maxNameAttempts = 1000

// claim hard-links tmp under the first free numbered variant of name. A
// link fails when the name exists, so a file created concurrently under
// the same name is never replaced.
func claim(tmp, dir, name string) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		target := filepath.Join(dir, filex.NumberedName(name, n))
		err := linkFile(tmp, target)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("link %s: %w", target, err)
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}
