// Package loader implements the opaque query loader: reading one YAML
// query file, or recursively loading every query file beneath a
// directory, skipping and logging files that fail to parse rather than
// aborting the whole walk.
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shaneisley/ieql/pkg/ieqllog"
	"github.com/shaneisley/ieql/pkg/query"
)

// queryFileSuffix is the recommended (not enforced) extension for a
// query file, generalizing the reference implementation's `*.ieql`
// convention to a YAML-flavored one.
const queryFileSuffix = ".ieql.yaml"

// IoError reports that a query file could not be opened, read, or
// decoded. It
// mirrors the reference loader's `load_document` failure, which skips
// the offending file with a logged Issue rather than aborting.
type IoError struct {
	Path   string
	Reason error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("unable to read %q: %v", e.Path, e.Reason)
}

func (e *IoError) Unwrap() error { return e.Reason }

// Load reads and decodes a single query file.
func Load(path string) (query.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return query.Query{}, &IoError{Path: path, Reason: err}
	}

	var q query.Query
	if err := yaml.Unmarshal(data, &q); err != nil {
		return query.Query{}, &IoError{Path: path, Reason: err}
	}
	return q, nil
}

// LoadAll loads every query file beneath path. If path is a single
// file it is loaded directly; if it is a directory, every file beneath
// it (recursively) is attempted. A file that fails to load is logged
// and skipped — the walk as a whole never aborts because one file is
// bad, matching the per-document error isolation policy applied to
// query loading.
func LoadAll(path string, log *ieqllog.Logger) ([]query.Query, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &IoError{Path: path, Reason: err}
	}

	if !info.IsDir() {
		q, err := Load(path)
		if err != nil {
			return nil, err
		}
		return []query.Query{q}, nil
	}

	var queries []query.Query
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		q, loadErr := Load(p)
		if loadErr != nil {
			if log != nil {
				log.LogQueryRejected(p, loadErr)
			}
			return nil
		}
		queries = append(queries, q)
		return nil
	})
	if err != nil {
		return nil, &IoError{Path: path, Reason: err}
	}

	return queries, nil
}
