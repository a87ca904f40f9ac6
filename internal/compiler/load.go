package compiler

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/stepdoc/internal/schema"
)

//go:embed ifc4.cue
var ifc4Source string

var ifc4 = sync.OnceValues(func() (*schema.Table, error) {
	return CompileSchemaString("ifc4.cue", ifc4Source)
})

// IFC4 returns the built-in IFC4 subset. The table is compiled once and shared;
// tables are immutable so sharing is safe.
func IFC4() (*schema.Table, error) {
	return ifc4()
}

// CompileSchemaString compiles CUE source text into a table.
func CompileSchemaString(filename, src string) (*schema.Table, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileSchema(v)
}

// LoadSchemaDir loads the CUE package in dir and compiles it.
// All .cue files of the package are unified before compilation, so a schema
// can be split across files.
func LoadSchemaDir(dir string) (*schema.Table, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("load %s: %w", dir, inst.Err)
	}

	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return CompileSchema(v)
}
