package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"

	"github.com/roach88/stepdoc/internal/compiler"
	"github.com/roach88/stepdoc/internal/engine"
	"github.com/roach88/stepdoc/internal/schema"
	"github.com/roach88/stepdoc/internal/spf"
)

// SchemaResult is a compiled schema and where it came from.
type SchemaResult struct {
	Table     *schema.Table
	Dir       string // empty for the built-in schema
	FileCount int    // Number of CUE files found
}

// LoadError represents an error that occurred while loading a schema or a
// document.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadSchema compiles the CUE package in dir. An empty dir selects the
// built-in IFC4 subset.
func LoadSchema(dir string) (*SchemaResult, error) {
	if dir == "" {
		table, err := compiler.IFC4()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("built-in schema: %v", err)}
		}
		return &SchemaResult{Table: table}, nil
	}

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	table, err := compiler.LoadSchemaDir(dir)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return &SchemaResult{Table: table, Dir: dir, FileCount: len(cueFiles)}, nil
}

// FindCUEFiles returns the .cue files directly inside dir. Subdirectories
// are separate CUE packages and are not part of the schema.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    ErrCodeBuildFailed,
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
}

// LoadDocument reads and decodes an exchange file against table. The
// document logs through the default logger.
func LoadDocument(path string, table *schema.Table, opts ...engine.Option) (*spf.File, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	opts = append([]engine.Option{engine.WithLogger(slog.Default())}, opts...)
	f, err := spf.Decode(data, []*schema.Table{table}, opts...)
	if err != nil {
		return nil, convertDecodeError(path, err)
	}
	return f, nil
}

// convertDecodeError classifies an exchange file error.
func convertDecodeError(path string, err error) *LoadError {
	var syntaxErr *spf.SyntaxError
	switch {
	case errors.As(err, &syntaxErr):
		return &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("%s: %v", path, err)}
	case errors.Is(err, spf.ErrUnknownSchema):
		return &LoadError{Code: ErrCodeSchemaMismatch, Message: fmt.Sprintf("%s: %v", path, err)}
	case engine.CodeOf(err) != "":
		return &LoadError{Code: MapEngineCode(engine.CodeOf(err)), Message: fmt.Sprintf("%s: %v", path, err)}
	default:
		return &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("%s: %v", path, err)}
	}
}

// failLoad reports a load error through formatter.
func failLoad(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		msg := loadErr.Message
		if loadErr.Pos.IsValid() {
			msg = fmt.Sprintf("%s:%d:%d: %s", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column(), msg)
		}
		return formatter.Fail(ExitCommandError, loadErr.Code, msg, nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric        = "E001" // Generic/unknown error
	ErrCodeScanError      = "E002" // Directory scan error
	ErrCodeNoFiles        = "E003" // No CUE files found
	ErrCodeLoadFailed     = "E004" // CUE load failed
	ErrCodeNotFound       = "E005" // Path not found
	ErrCodeBuildFailed    = "E006" // CUE build or schema compile failed
	ErrCodeWriteFailed    = "E007" // File write error
	ErrCodeParseFailed    = "E008" // Exchange file syntax error
	ErrCodeSchemaMismatch = "E009" // FILE_SCHEMA does not match the schema
	ErrCodeStoreFailed    = "E010" // Database error
	ErrCodeBadQuery       = "E011" // Invalid query flags

	// Document errors
	ErrCodeEntityNotFound = "E101" // NOT_FOUND
	ErrCodeSchema         = "E102" // SCHEMA
	ErrCodeArity          = "E103" // ARITY
	ErrCodeIllegalState   = "E104" // ILLEGAL_STATE
	ErrCodeDuplicate      = "E105" // DUPLICATE
	ErrCodeMissingValue   = "E106" // required attribute unset
)

// MapEngineCode maps a document error code to a CLI error code.
func MapEngineCode(code engine.Code) string {
	switch code {
	case engine.CodeNotFound:
		return ErrCodeEntityNotFound
	case engine.CodeSchema:
		return ErrCodeSchema
	case engine.CodeArity:
		return ErrCodeArity
	case engine.CodeIllegalState:
		return ErrCodeIllegalState
	case engine.CodeDuplicate:
		return ErrCodeDuplicate
	default:
		return ErrCodeGeneric
	}
}
