package session

import "fmt"

// RequirementsDir is where pinned requirements files live, one file per
// (category, version[, resolution]) combination.
const RequirementsDir = "ci_requirements"

// Category names an optional dependency set from pyproject.toml.
type Category int

const (
	CategoryTests Category = iota
	CategoryDocs
	CategoryAll
)

func (c Category) String() string {
	switch c {
	case CategoryTests:
		return "tests"
	case CategoryDocs:
		return "docs"
	case CategoryAll:
		return "all"
	default:
		return "unknown"
	}
}

// Resolution is the dependency-version-selection policy used when the
// requirements file was compiled.
type Resolution int

const (
	ResolutionHighest Resolution = iota
	ResolutionLowestDirect
	ResolutionLowest
)

func (r Resolution) String() string {
	switch r {
	case ResolutionHighest:
		return "highest"
	case ResolutionLowestDirect:
		return "lowest-direct"
	case ResolutionLowest:
		return "lowest"
	default:
		return "unknown"
	}
}

// RequirementsPath maps a (category, version, resolution) triple to its
// pinned requirements file. The resolution segment is omitted when it
// equals the default "highest". Pure function: identical triples always
// yield identical paths, and distinct triples never collide.
func RequirementsPath(category Category, version string, resolution Resolution) string {
	if resolution == ResolutionHighest {
		return fmt.Sprintf("%s/%s-%s.txt", RequirementsDir, category, version)
	}
	return fmt.Sprintf("%s/%s-%s-%s.txt", RequirementsDir, category, version, resolution)
}
