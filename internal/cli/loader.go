package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/relpath/internal/compiler"
	"github.com/roach88/relpath/internal/schema"
)

// LoadMode controls how errors are handled during schema loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the model definitions loaded from a schema path.
type LoadResult struct {
	Models    []schema.ModelDef
	CUEFiles  []string
	YAMLFiles []string
}

// FileCount is the number of schema files read.
func (r *LoadResult) FileCount() int {
	return len(r.CUEFiles) + len(r.YAMLFiles)
}

// LoadError represents an error that occurred during schema loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	File    string    // YAML file if available
	Line    int
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", e.File, e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModels loads model definitions from a directory of .cue and .yaml
// files, or from a single file. CUE models come first, then YAML files in
// name order.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadModels(path string, mode LoadMode) (*LoadResult, []error) {
	if path == "" {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: "no schema given: pass --schema or set RELPATH_SCHEMA"}}
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema: %v", err)}}
	}

	result := &LoadResult{}
	if info.IsDir() {
		cueFiles, yamlFiles, err := FindSchemaFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		result.CUEFiles, result.YAMLFiles = cueFiles, yamlFiles
	} else {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue":
			result.CUEFiles = []string{path}
		case ".yaml", ".yml":
			result.YAMLFiles = []string{path}
		default:
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("not a schema file: %s", path)}}
		}
	}
	if result.FileCount() == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE or YAML files found in %s", path)}}
	}

	var errs []error

	if len(result.CUEFiles) > 0 {
		value, err := buildCUE(path, info.IsDir(), result.CUEFiles)
		if err != nil {
			return nil, []error{err}
		}
		defs, cueErrs := compileCUEModels(value, mode)
		result.Models = append(result.Models, defs...)
		errs = append(errs, cueErrs...)
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
	}

	for _, file := range result.YAMLFiles {
		data, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", file, err), File: file})
		} else if defs, err := compiler.CompileYAML(data, file); err != nil {
			errs = append(errs, convertCompileError(err, file))
		} else {
			result.Models = append(result.Models, defs...)
		}
		if len(errs) > 0 && mode == LoadModeFailFast {
			return result, errs
		}
	}

	// Check if we found anything
	if len(result.Models) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no models found in schema"})
	}

	return result, errs
}

// buildCUE loads the CUE package in dir, or a single CUE file.
func buildCUE(path string, isDir bool, files []string) (cue.Value, error) {
	ctx := cuecontext.New()

	if !isDir {
		data, err := os.ReadFile(files[0])
		if err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("reading %s: %v", files[0], err)}
		}
		value := ctx.CompileBytes(data, cue.Filename(files[0]))
		if err := value.Err(); err != nil {
			return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
		}
		return value, nil
	}

	cfg := &load.Config{Dir: path}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

func compileCUEModels(value cue.Value, mode LoadMode) ([]schema.ModelDef, []error) {
	var (
		defs []schema.ModelDef
		errs []error
	)

	modelsVal := value.LookupPath(cue.ParsePath("model"))
	if !modelsVal.Exists() {
		return nil, nil
	}

	iter, err := modelsVal.Fields()
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating models: %v", err)}}
	}
	for iter.Next() {
		def, err := compiler.CompileModel(iter.Value())
		if err != nil {
			errs = append(errs, convertCompileError(err, "model."+iter.Label()))
			if mode == LoadModeFailFast {
				return defs, errs
			}
			continue
		}
		defs = append(defs, *def)
	}
	return defs, errs
}

// FindSchemaFiles walks the directory and returns the .cue and
// .yaml/.yml file paths, each sorted.
func FindSchemaFiles(dir string) (cueFiles, yamlFiles []string, err error) {
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue":
			cueFiles = append(cueFiles, path)
		case ".yaml", ".yml":
			yamlFiles = append(yamlFiles, path)
		}
		return nil
	})
	slices.Sort(cueFiles)
	slices.Sort(yamlFiles)
	return cueFiles, yamlFiles, err
}

// LoadRegistry loads, validates and registers the models at path.
// Validation errors are returned as the second result; err reports load
// and registration failures.
func LoadRegistry(path string, logger *slog.Logger) (*schema.Registry, []compiler.ValidationError, error) {
	result, errs := LoadModels(path, LoadModeFailFast)
	if len(errs) > 0 {
		return nil, nil, errs[0]
	}

	if verrs := compiler.Validate(result.Models); len(verrs) > 0 {
		return nil, verrs, nil
	}

	reg, err := schema.Build(result.Models, schema.WithLogger(logger))
	if err != nil {
		return nil, nil, &LoadError{Code: ErrCodeSchemaInvalid, Message: err.Error()}
	}
	return reg, nil, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
			File:    compileErr.File,
			Line:    compileErr.Line,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case field == "yaml":
		return ErrCodeLoadFailed
	case field == "kind" || strings.HasSuffix(field, ".kind"):
		return compiler.ErrInvalidFieldKind
	case field == "default" || strings.HasSuffix(field, ".default"):
		return compiler.ErrInvalidDefault
	case strings.HasPrefix(field, "relationships."):
		return compiler.ErrRelationshipNoTarget
	default:
		return ErrCodeGeneric
	}
}
