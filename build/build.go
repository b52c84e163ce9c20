// Package build reports how a binary was built. Release builds inject a JSON
// document with -ldflags; other builds fall back to the module metadata the
// Go toolchain embeds.
package build

import (
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"slices"
)

// Info is build metadata for the version command.
type Info struct {
	Version      string            `json:"version"`
	GitCommit    string            `json:"git_commit"` //nolint:tagliatelle
	GitDate      string            `json:"git_date"`   //nolint:tagliatelle
	BuildTime    string            `json:"build_time"` //nolint:tagliatelle
	GoVersion    string            `json:"go_version"` //nolint:tagliatelle
	Dependencies map[string]string `json:"dependencies"`
}

// Parse decodes injected build metadata. It returns false for an empty
// document or one that does not decode.
func Parse(js string) (*Info, bool) {
	if js == "" || js == "{}" {
		return nil, false
	}

	var info Info

	if err := json.Unmarshal([]byte(js), &info); err != nil {
		slog.Warn("Failed to parse build info from JSON", "data", js, "error", err)

		return nil, false
	}

	return &info, true
}

// Read returns the injected metadata when present, otherwise what the
// toolchain recorded. It returns nil if neither is available.
func Read(injected string) *Info {
	if info, ok := Parse(injected); ok {
		return info
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}

	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) *Info {
	info := &Info{
		Version:   bi.Main.Version,
		GoVersion: bi.GoVersion,
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.GitCommit = s.Value
		case "vcs.time":
			info.GitDate = s.Value
		}
	}

	if len(bi.Deps) > 0 {
		info.Dependencies = make(map[string]string, len(bi.Deps))

		for _, dep := range bi.Deps {
			v := dep.Version
			if dep.Replace != nil {
				v = dep.Replace.Path + "@" + dep.Replace.Version
			}

			info.Dependencies[dep.Path] = v
		}
	}

	return info
}

// SortedDependencies returns the dependency paths in lexical order.
func (i *Info) SortedDependencies() []string {
	deps := make([]string, 0, len(i.Dependencies))
	for dep := range i.Dependencies {
		deps = append(deps, dep)
	}

	slices.Sort(deps)

	return deps
}
