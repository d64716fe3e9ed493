package xsd

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"
)

//go:embed schemas/*.xsd
var bundled embed.FS

// Bundled returns the provider interface schemas shipped with the package.
func Bundled() fs.FS {
	sub, err := fs.Sub(bundled, "schemas")
	if err != nil {
		panic(err)
	}
	return sub
}

// Validator loads schemas from a filesystem and caches them by path.
type Validator struct {
	fsys fs.FS

	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewValidator returns a Validator reading schemas from fsys. A nil fsys
// uses the bundled schemas.
func NewValidator(fsys fs.FS) *Validator {
	if fsys == nil {
		fsys = Bundled()
	}
	return &Validator{fsys: fsys, schemas: make(map[string]*Schema)}
}

// Schema returns the parsed schema at path, loading it on first use.
func (v *Validator) Schema(path string) (*Schema, error) {
	v.mu.RLock()
	s, ok := v.schemas[path]
	v.mu.RUnlock()
	if ok {
		return s, nil
	}

	data, err := fs.ReadFile(v.fsys, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, path)
		}
		return nil, fmt.Errorf("reading schema %s: %w", path, err)
	}
	s, err = Parse(path, data)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if cached, ok := v.schemas[path]; ok {
		return cached, nil
	}
	v.schemas[path] = s
	return s, nil
}

// Validate validates doc against the schema at schemaPath. The error is only
// set when the schema itself cannot be loaded.
func (v *Validator) Validate(schemaPath, source string, doc []byte) (*Result, error) {
	s, err := v.Schema(schemaPath)
	if err != nil {
		return nil, err
	}
	return s.Validate(source, doc), nil
}
