package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// file is the decoded shape of a catalog file.
type file struct {
	Series []Series `json:"series"`
}

// LoadFile reads a catalog from a CUE (or JSON) file.
//
// The file must define a `series` list of {code, name} structs. It is
// unified with the embedded schema before decoding, so unknown fields,
// malformed codes and empty names are reported with CUE positions.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, data)
}

// Parse compiles catalog source. filename is used for error positions only.
func Parse(filename string, data []byte) (*Catalog, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile catalog %s: %w", filename, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", filename, err)
	}

	var f file
	if err := unified.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", filename, err)
	}
	if len(f.Series) == 0 {
		return nil, fmt.Errorf("catalog %s: no series defined", filename)
	}
	return New(f.Series)
}
