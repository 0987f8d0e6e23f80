package manifest

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Load reads and validates a manifest file.
// The file's value is unified with the embedded #Manifest schema, so
// unknown fields, missing required fields, and out-of-range engine
// parameters are all rejected here with CUE's positional diagnostics.
func Load(path string) (*Manifest, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(path, source)
}

// Parse validates manifest source. The filename is used only for
// diagnostics.
func Parse(filename string, source []byte) (*Manifest, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema error: %w", err)
	}
	manifestSchema := schema.LookupPath(cue.ParsePath("#Manifest"))
	if err := manifestSchema.Err(); err != nil {
		return nil, fmt.Errorf("internal schema error: %w", err)
	}

	value := ctx.CompileBytes(source, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("compile manifest: %w", err)
	}

	unified := manifestSchema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}

	var m Manifest
	if err := unified.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}
