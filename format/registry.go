package format

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/taskmesh/schema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	commonFile    = "common.schema.json"
	schemaSuffix  = ".schema.json"
	exampleSuffix = ".example.json"
	commonRefBase = commonFile + "#/$defs/"
)

type entry struct {
	name      string
	document  map[string]any // self-contained schema
	validator schema.Validator
	example   []byte
}

// Registry maps operation names to compiled output schemas. It is immutable
// after construction and safe for concurrent use.
type Registry struct {
	entries map[string]*entry
}

// NewRegistry loads every <op>.schema.json (and optional <op>.example.json)
// from dir in fsys. References into common.schema.json are inlined so each
// compiled schema is self-contained.
func NewRegistry(fsys fs.FS, dir string) (*Registry, error) {
	var common map[string]any
	if b, err := fs.ReadFile(fsys, path.Join(dir, commonFile)); err == nil {
		if err := json.Unmarshal(b, &common); err != nil {
			return nil, fmt.Errorf("decode schema common: %w", err)
		}
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*"+schemaSuffix))
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	r := &Registry{entries: map[string]*entry{}}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), schemaSuffix)
		if name+schemaSuffix == commonFile {
			continue
		}
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode schema %s: %w", name, err)
		}
		doc = bundle(doc, common)

		bundled, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode schema %s: %w", name, err)
		}
		v, err := schema.CompileJSON(name, bundled)
		if err != nil {
			return nil, err
		}

		e := &entry{name: name, document: doc, validator: v}
		if ex, err := fs.ReadFile(fsys, path.Join(dir, name+exampleSuffix)); err == nil {
			e.example = ex
		}
		r.entries[name] = e
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// DefaultRegistry returns the registry built from the embedded schemas.
func DefaultRegistry() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = NewRegistry(schemaFS, "schemas")
	})
	return defaultRegistry, defaultErr
}

// MustDefaultRegistry is DefaultRegistry that panics on error.
func MustDefaultRegistry() *Registry {
	r, err := DefaultRegistry()
	if err != nil {
		panic(err)
	}
	return r
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.entries))
	for n := range r.entries {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has reports whether an output schema exists for name.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

// Validator returns the compiled validator for name.
func (r *Registry) Validator(name string) (schema.Validator, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.validator, true
}

// Schema returns a deep copy of the self-contained schema document for name,
// without $schema/$id, suitable for provider structured output.
func (r *Registry) Schema(name string) (map[string]any, bool) {
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	cp := deepCopy(e.document).(map[string]any)
	delete(cp, "$schema")
	delete(cp, "$id")
	return cp, true
}

// Example returns the example raw output for name.
func (r *Registry) Example(name string) ([]byte, bool) {
	e, ok := r.entries[name]
	if !ok || e.example == nil {
		return nil, false
	}
	return bytes.Clone(e.example), true
}

// bundle inlines the definitions from common that doc references and
// rewrites those references to local ones.
func bundle(doc, common map[string]any) map[string]any {
	out := rewriteRefs(doc).(map[string]any)
	delete(out, "$id")
	if common == nil {
		return out
	}
	defs, _ := common["$defs"].(map[string]any)
	if len(defs) == 0 {
		return out
	}
	local, _ := out["$defs"].(map[string]any)
	if local == nil {
		local = map[string]any{}
	}
	for k, v := range defs {
		if _, exists := local[k]; !exists {
			local[k] = deepCopy(v)
		}
	}
	out["$defs"] = local
	return out
}

func rewriteRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			if s, ok := val.(string); ok && k == "$ref" && strings.HasPrefix(s, commonRefBase) {
				m[k] = "#/$defs/" + strings.TrimPrefix(s, commonRefBase)
				continue
			}
			m[k] = rewriteRefs(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = rewriteRefs(val)
		}
		return s
	default:
		return v
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = deepCopy(val)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = deepCopy(val)
		}
		return s
	default:
		return v
	}
}
