// Package sample holds the static datasets shown to sessions without a paid
// plan.
package sample

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/muniops/internal/model"
)

//go:embed fixtures/*.json
var embedded embed.FS

// Fixtures maps each entity to its sample rows. Accessors return deep copies,
// so the shared dataset can't be mutated through a result.
type Fixtures struct {
	rows map[model.Entity][]model.Record
}

// Load reads the embedded fixtures.
func Load() (*Fixtures, error) {
	sub, err := fs.Sub(embedded, "fixtures")
	if err != nil {
		return nil, eris.Wrap(err, "sample: open embedded fixtures")
	}
	return load(sub)
}

// LoadDir reads <entity>.json files from dir. Entities without a file get an
// empty dataset.
func LoadDir(dir string) (*Fixtures, error) {
	return load(os.DirFS(dir))
}

func load(fsys fs.FS) (*Fixtures, error) {
	f := &Fixtures{rows: make(map[model.Entity][]model.Record)}
	for _, e := range model.Entities() {
		data, err := fs.ReadFile(fsys, e.Table()+".json")
		if errors.Is(err, fs.ErrNotExist) {
			f.rows[e] = []model.Record{}
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "sample: read %s fixture", e)
		}

		var rows []model.Record
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, eris.Wrapf(err, "sample: unmarshal %s fixture", e)
		}
		if rows == nil {
			rows = []model.Record{}
		}
		f.rows[e] = rows
	}
	return f, nil
}

// Rows returns a copy of the dataset for e.
func (f *Fixtures) Rows(e model.Entity) []model.Record {
	rows, ok := f.rows[e]
	if !ok {
		return []model.Record{}
	}
	return model.CloneRecords(rows)
}

// Find returns a copy of the row with the given id.
func (f *Fixtures) Find(e model.Entity, id string) (model.Record, bool) {
	for _, r := range f.rows[e] {
		if r.ID() == id {
			return r.Clone(), true
		}
	}
	return nil, false
}

// Count returns the number of sample rows for e.
func (f *Fixtures) Count(e model.Entity) int {
	return len(f.rows[e])
}
