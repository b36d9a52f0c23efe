package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSrc string

// Validate checks YAML data against the embedded CUE schema.
func Validate(name string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if schema.Err() != nil {
		return fmt.Errorf("compile schema: %w", schema.Err())
	}

	file, err := cueyaml.Extract(name, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	val := ctx.BuildFile(file)
	if val.Err() != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, val.Err())
	}

	final := schema.LookupPath(cue.ParsePath("#Config")).Unify(val)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
