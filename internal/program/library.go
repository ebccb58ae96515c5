package program

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-dispatch/internal/device"
	"github.com/nerrad567/gray-logic-dispatch/internal/dispatch"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Library is a set of named programs.
type Library struct {
	Programs map[string]Program `yaml:"programs" json:"programs"`
}

// Program is a named execution graph definition.
type Program struct {
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Step        `yaml:",inline"`
}

// Step is one node of a program definition. Exactly one of Sequence,
// Parallel or Send must be set.
type Step struct {
	Name     string    `yaml:"name,omitempty" json:"name,omitempty"`
	Sequence []Step    `yaml:"sequence,omitempty" json:"sequence,omitempty"`
	Parallel []Step    `yaml:"parallel,omitempty" json:"parallel,omitempty"`
	Limit    int       `yaml:"limit,omitempty" json:"limit,omitempty"`
	Send     *SendStep `yaml:"send,omitempty" json:"send,omitempty"`
}

// SendStep sends one command to a device alias.
type SendStep struct {
	Device  string         `yaml:"device" json:"device"`
	Kind    device.Kind    `yaml:"kind" json:"kind"`
	Payload map[string]any `yaml:"payload,omitempty" json:"payload,omitempty"`
}

// Resolver maps a device alias to a registry identity.
type Resolver func(alias string) (string, error)

// MapResolver resolves aliases from a fixed map.
func MapResolver(ids map[string]string) Resolver {
	return func(alias string) (string, error) {
		id, ok := ids[alias]
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownAlias, alias)
		}
		return id, nil
	}
}

// DefaultLibrary returns the built-in wake_up and sleep programs.
func DefaultLibrary() *Library {
	lib, err := ParseLibrary(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("program: built-in library: %v", err))
	}
	return lib
}

// LoadLibrary reads and validates a YAML program library.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading program library: %w", err)
	}
	lib, err := ParseLibrary(data)
	if err != nil {
		return nil, fmt.Errorf("program library %s: %w", path, err)
	}
	return lib, nil
}

// ParseLibrary decodes and validates a YAML program library.
func ParseLibrary(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, fmt.Errorf("%w: parsing: %v", ErrInvalidProgram, err)
	}
	if err := lib.Validate(); err != nil {
		return nil, err
	}
	return &lib, nil
}

// Validate checks every program in the library.
func (l *Library) Validate() error {
	for _, name := range l.Names() {
		if name == "" {
			return fmt.Errorf("%w: empty program name", ErrInvalidProgram)
		}
		if err := l.Programs[name].Step.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the program names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.Programs))
	for name := range l.Programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named program.
func (l *Library) Get(name string) (Program, error) {
	p, ok := l.Programs[name]
	if !ok {
		return Program{}, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	return p, nil
}

// Merge adds other's programs, replacing any with the same name.
func (l *Library) Merge(other *Library) {
	if other == nil {
		return
	}
	if l.Programs == nil {
		l.Programs = make(map[string]Program, len(other.Programs))
	}
	for name, p := range other.Programs {
		l.Programs[name] = p
	}
}

// Aliases returns every device alias the library refers to, sorted.
func (l *Library) Aliases() []string {
	seen := make(map[string]bool)
	for _, p := range l.Programs {
		p.Step.aliases(seen)
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func (s Step) validate(path string) error {
	if s.Name != "" {
		path += "/" + s.Name
	}

	branches := 0
	if len(s.Sequence) > 0 {
		branches++
	}
	if len(s.Parallel) > 0 {
		branches++
	}
	if s.Send != nil {
		branches++
	}
	if branches != 1 {
		return fmt.Errorf("%w: %s: step needs exactly one of sequence, parallel or send", ErrInvalidProgram, path)
	}

	if s.Send != nil {
		if s.Send.Device == "" || s.Send.Kind == "" {
			return fmt.Errorf("%w: %s: send needs device and kind", ErrInvalidProgram, path)
		}
		return nil
	}
	for i, child := range s.children() {
		if err := child.validate(fmt.Sprintf("%s[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func (s Step) children() []Step {
	if len(s.Sequence) > 0 {
		return s.Sequence
	}
	return s.Parallel
}

func (s Step) aliases(seen map[string]bool) {
	if s.Send != nil {
		seen[s.Send.Device] = true
		return
	}
	for _, c := range s.children() {
		c.aliases(seen)
	}
}

// Compile builds a fresh unit graph for the step. Units are single-use, so
// every run compiles again.
func Compile(s Step, sender Sender, resolve Resolver) (Unit, error) {
	if s.Send != nil {
		id, err := resolve(s.Send.Device)
		if err != nil {
			return nil, err
		}
		return Send(sender, dispatch.NewMessage(id, s.Send.Kind, device.Payload(s.Send.Payload))), nil
	}

	children := s.children()
	units := make([]Unit, 0, len(children))
	for _, c := range children {
		u, err := Compile(c, sender, resolve)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}

	var g *Group
	switch {
	case len(s.Sequence) > 0:
		g = Sequence(units...)
	case len(s.Parallel) > 0:
		g = Parallel(units...).Limit(s.Limit)
	default:
		return nil, fmt.Errorf("%w: empty step", ErrInvalidProgram)
	}
	if s.Name != "" {
		g.Named(s.Name)
	}
	return g, nil
}
