package testing

import (
	"os"
	"path/filepath"

	"github.com/amp-labs/stateful/statemachine"
	"gopkg.in/yaml.v3"
)

// VisibilityYAML declares a show/hide machine with callbacks on every step,
// a triggers cascade and a wildcard panic.
const VisibilityYAML = `
name: visibility
transitions:
  init:
    initialized: {enterState: visible}
  visible:
    hide:
      enterState: hidden
      callbacks: [visibleToHidden1, visibleToHidden2]
  hidden:
    show:
      enterState: visible
      callbacks: [hiddenToVisible1, hiddenToVisible2]
      triggers: showTime
  "*":
    panic: panicking
states:
  visible:
    enter: [enterVisible1, enterVisible2]
    leave: [leaveVisible1, leaveVisible2]
  hidden:
    enter: [enterHidden1]
`

// LoadTestDefinition loads a definition from a YAML file, relative paths
// resolved against testdata/.
func LoadTestDefinition(name string) (*statemachine.Definition, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join("testdata", name)
	}

	return statemachine.LoadDefinition(path)
}

// SaveTestDefinition writes def to path as YAML.
func SaveTestDefinition(path string, def *statemachine.Definition) error {
	data, err := yaml.Marshal(def)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600) //nolint:mnd
}

func mustBuild(b *statemachine.Builder) *statemachine.Definition {
	def, err := b.Build()
	if err != nil {
		panic(err)
	}

	return def
}

// CommonTestDefinitions provides frequently used definitions. Each call
// returns a fresh definition.
var CommonTestDefinitions = struct {
	Visibility func() *statemachine.Definition
	Chained    func() *statemachine.Definition
	Promised   func() *statemachine.Definition
}{
	Visibility: func() *statemachine.Definition {
		def, err := statemachine.LoadDefinitionFromBytes([]byte(VisibilityYAML))
		if err != nil {
			panic(err)
		}

		return def
	},
	// Chained re-triggers hide from the enter callback of visible.
	Chained: func() *statemachine.Definition {
		return mustBuild(statemachine.NewBuilder("chained").
			AddTransition(statemachine.InitState, "show", "visible").
			AddTransition("visible", "hide", "hidden").
			OnEnter("visible", "hideNow"))
	},
	// Promised has an enter callback on both of its states.
	Promised: func() *statemachine.Definition {
		return mustBuild(statemachine.NewBuilder("promised").
			AddTransition(statemachine.InitState, "show", "promisedShow").
			AddTransition("promisedShow", "hide", "promisedHide").
			OnEnter("promisedShow", "promisedShow").
			OnEnter("promisedHide", "promisedHide"))
	},
}
