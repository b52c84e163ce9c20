package statemachine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefinitionLoader loads definitions by bare name.
type DefinitionLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	loaderMu                sync.RWMutex
	defaultDefinitionLoader DefinitionLoader
)

// SetDefinitionLoader sets the loader LoadDefinition uses for bare names.
func SetDefinitionLoader(loader DefinitionLoader) {
	loaderMu.Lock()
	defer loaderMu.Unlock()

	defaultDefinitionLoader = loader
}

func getDefinitionLoader() DefinitionLoader {
	loaderMu.RLock()
	defer loaderMu.RUnlock()

	return defaultDefinitionLoader
}

// Definition is the declarative description of a machine. It is immutable
// once a Machine has been built from it and may be shared by many machines.
type Definition struct {
	Name string `json:"name" yaml:"name"`

	// StartState seeds the machine on Start when no start option overrides
	// it. Empty means InitState.
	StartState string `json:"startState,omitempty" yaml:"startState,omitempty"`

	// StartEvent, when set, is fired by Start if the seeded state is
	// InitState.
	StartEvent string `json:"startEvent,omitempty" yaml:"startEvent,omitempty"`

	Transitions *Table                 `json:"-"                   yaml:"transitions"`
	States      map[string]StateConfig `json:"states,omitempty"    yaml:"states,omitempty"`
}

// LoadDefinition loads a definition from a file path or, for bare names,
// through the loader registered with SetDefinitionLoader.
func LoadDefinition(pathOrName string) (*Definition, error) {
	lower := strings.ToLower(pathOrName)

	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec // path-based loading is the point
		if err != nil {
			return nil, fmt.Errorf("failed to read definition file %q: %w", pathOrName, err)
		}

		return LoadDefinitionFromBytes(data)
	}

	loader := getDefinitionLoader()
	if loader == nil {
		return nil, fmt.Errorf("%w: use SetDefinitionLoader() or provide a file path", ErrNoDefinitionLoader)
	}

	data, err := loader.LoadByName(pathOrName)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %q (available: %v): %w",
			pathOrName, loader.ListAvailable(), err)
	}

	return LoadDefinitionFromBytes(data)
}

// LoadDefinitionFromBytes parses and validates a YAML definition.
func LoadDefinitionFromBytes(data []byte) (*Definition, error) {
	var def Definition

	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}

	return &def, nil
}

// LoadDefinitionFromFS reads a definition from fsys.
func LoadDefinitionFromFS(fsys fs.FS, name string) (*Definition, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition from FS: %w", err)
	}

	return LoadDefinitionFromBytes(data)
}

// FSLoader is a DefinitionLoader serving <name>.yaml files from a directory
// of an fs.FS.
type FSLoader struct {
	FS  fs.FS
	Dir string
}

// LoadByName implements DefinitionLoader.
func (l FSLoader) LoadByName(name string) ([]byte, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := fs.ReadFile(l.FS, path.Join(l.dir(), name+ext))
		if err == nil {
			return data, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("definition %s: %w", name, fs.ErrNotExist)
}

// ListAvailable implements DefinitionLoader.
func (l FSLoader) ListAvailable() []string {
	entries, err := fs.ReadDir(l.FS, l.dir())
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := path.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(entry.Name(), ext))
		}
	}

	sort.Strings(names)

	return names
}

func (l FSLoader) dir() string {
	if l.Dir == "" {
		return "."
	}

	return l.Dir
}

// Validate checks the structural rules a machine relies on. Semantic checks
// such as reachability live in the validator package.
func (d *Definition) Validate() error {
	if d == nil {
		return ErrNilDefinition
	}

	if d.Name == "" {
		return ErrDefinitionNameMissing
	}

	if d.Transitions == nil || d.Transitions.Len() == 0 {
		return fmt.Errorf("definition %s: %w", d.Name, ErrNoTransitions)
	}

	if _, ok := d.States[Wildcard]; ok {
		return fmt.Errorf("definition %s: %w", d.Name, ErrWildcardState)
	}

	for name, state := range d.States {
		if slices.Contains(state.Enter, "") || slices.Contains(state.Leave, "") {
			return fmt.Errorf("definition %s, state %s: %w", d.Name, name, ErrEmptyCallbackName)
		}
	}

	if d.StartState != "" && !d.HasState(d.StartState) {
		return fmt.Errorf("definition %s: %w: %s", d.Name, ErrStartStateUndeclared, d.StartState)
	}

	if d.StartEvent != "" {
		if _, ok := d.Transitions.Resolve(InitState, d.StartEvent); !ok {
			return fmt.Errorf("definition %s: %w: %s", d.Name, ErrStartEventUndeclared, d.StartEvent)
		}
	}

	return nil
}

// StateNames returns the declared states: InitState, then every source and
// target of the table in declaration order, then any remaining states that
// only carry configuration, sorted.
func (d *Definition) StateNames() []string {
	seen := map[string]struct{}{InitState: {}}
	names := []string{InitState}

	add := func(name string) {
		if name == Wildcard {
			return
		}

		if _, ok := seen[name]; ok {
			return
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	if d.Transitions != nil {
		for _, entry := range d.Transitions.Entries() {
			add(entry.From)
			add(entry.EnterState)
		}
	}

	extra := make([]string, 0, len(d.States))
	for name := range d.States {
		if _, ok := seen[name]; !ok {
			extra = append(extra, name)
		}
	}

	sort.Strings(extra)

	for _, name := range extra {
		add(name)
	}

	return names
}

// HasState reports whether name is a declared state.
func (d *Definition) HasState(name string) bool {
	if name == InitState {
		return true
	}

	if name == "" || name == Wildcard {
		return false
	}

	if _, ok := d.States[name]; ok {
		return true
	}

	if d.Transitions == nil {
		return false
	}

	for _, entry := range d.Transitions.Entries() {
		if entry.From == name || entry.EnterState == name {
			return true
		}
	}

	return false
}

// State returns the configuration of name, or the zero StateConfig.
func (d *Definition) State(name string) StateConfig {
	return d.States[name]
}

// Events returns the event names of the table without duplicates.
func (d *Definition) Events() []string {
	if d.Transitions == nil {
		return nil
	}

	return d.Transitions.Events()
}

// CallbackNames returns every callback name the definition references,
// sorted and without duplicates.
func (d *Definition) CallbackNames() []string {
	set := make(map[string]struct{})

	if d.Transitions != nil {
		for _, entry := range d.Transitions.Entries() {
			for _, name := range entry.Callbacks {
				set[name] = struct{}{}
			}
		}
	}

	for _, state := range d.States {
		for _, name := range state.Enter {
			set[name] = struct{}{}
		}

		for _, name := range state.Leave {
			set[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
