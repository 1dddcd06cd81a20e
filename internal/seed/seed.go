// Package seed fills a store with content: the bundled sample files or a
// copy of a host directory tree.
package seed

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"memvfs/internal/logging"
	"memvfs/internal/store"
	"memvfs/internal/vpath"
)

var seedLogger = logging.GetLogger().WithPrefix("seed")

//go:embed samples
var samples embed.FS

const samplesDir = "samples"

// sampleSuffix is stripped from embedded names. It keeps Go sources out of
// the build.
const sampleSuffix = ".sample"

var upsert = store.WriteOptions{Create: true, Overwrite: true}

// SampleNames returns the store paths LoadSamples writes, sorted.
func SampleNames() []string {
	entries, err := samples.ReadDir(samplesDir)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, vpath.Join(vpath.Root, strings.TrimSuffix(e.Name(), sampleSuffix)))
	}
	return names
}

// LoadSamples writes the bundled sample files into the root of st,
// replacing any existing files of the same name.
func LoadSamples(st *store.Store) error {
	entries, err := samples.ReadDir(samplesDir)
	if err != nil {
		return fmt.Errorf("reading bundled samples: %w", err)
	}

	for _, e := range entries {
		data, err := samples.ReadFile(samplesDir + "/" + e.Name())
		if err != nil {
			return fmt.Errorf("reading sample %s: %w", e.Name(), err)
		}

		p := vpath.Join(vpath.Root, strings.TrimSuffix(e.Name(), sampleSuffix))
		if err := st.Write(p, data, upsert); err != nil {
			return fmt.Errorf("writing sample %s: %w", p, err)
		}
		seedLogger.Trace("Loaded sample %q (%d bytes)", p, len(data))
	}

	seedLogger.Info("Loaded %d sample files", len(entries))
	return nil
}

// ImportDir copies the tree under root on fsys into st. Host paths are
// re-rooted so that root itself becomes "/". Existing directories are kept
// and existing files are replaced. It returns the number of files written.
func ImportDir(fsys afero.Fs, root string, st *store.Store) (int, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("import source %s: %w", root, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("import source %s is not a directory", root)
	}

	imported := 0
	err = afero.Walk(fsys, root, func(hostPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, hostPath)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		p := vpath.Clean(filepath.ToSlash(rel))

		switch {
		case info.IsDir():
			if err := st.CreateDirectory(p); err != nil {
				if !errors.Is(err, store.ErrAlreadyExists) {
					return err
				}
				if existing, statErr := st.Stat(p); statErr != nil || existing.Type != store.TypeDirectory {
					return err
				}
			}
		case info.Mode().IsRegular():
			data, err := afero.ReadFile(fsys, hostPath)
			if err != nil {
				return err
			}
			if err := st.Write(p, data, upsert); err != nil {
				return err
			}
			imported++
		default:
			seedLogger.Debug("Skipping %s: not a regular file (%v)", hostPath, info.Mode().Type())
		}
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("importing %s: %w", root, err)
	}

	seedLogger.Info("Imported %d files from %s", imported, root)
	return imported, nil
}
