package session

import (
	"fmt"
	"strings"
)

// Registry maps session names to descriptors. It is built once at
// process start and never mutated afterwards.
type Registry struct {
	sessions map[string]*Session
	order    []string
}

// NewRegistry builds a registry from statically declared sessions.
// Duplicate names, missing bodies, and duplicate variant IDs within a
// session are configuration errors.
func NewRegistry(sessions ...*Session) (*Registry, error) {
	r := &Registry{sessions: make(map[string]*Session, len(sessions))}

	for _, s := range sessions {
		if s.Name == "" {
			return nil, fmt.Errorf("session with empty name")
		}
		if s.Body == nil {
			return nil, fmt.Errorf("session %q has no body", s.Name)
		}
		if _, dup := r.sessions[s.Name]; dup {
			return nil, fmt.Errorf("duplicate session name: %q", s.Name)
		}
		seen := make(map[string]string)
		for _, a := range s.Axes {
			if len(a.Variants) == 0 {
				return nil, fmt.Errorf("session %q: axis %q has no variants", s.Name, a.Name)
			}
			for _, v := range a.Variants {
				if prev, dup := seen[v]; dup {
					return nil, fmt.Errorf("session %q: variant %q declared on both %q and %q", s.Name, v, prev, a.Name)
				}
				seen[v] = a.Name
			}
		}
		r.sessions[s.Name] = s
		r.order = append(r.order, s.Name)
	}

	return r, nil
}

// Sessions returns all sessions in declaration order.
func (r *Registry) Sessions() []*Session {
	out := make([]*Session, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sessions[name])
	}
	return out
}

// Session returns the descriptor for a name, or nil.
func (r *Registry) Session(name string) *Session {
	return r.sessions[name]
}

// Instances expands a session into its full cross product: the version
// axis in declared order, then parameter axes in declaration order.
func (r *Registry) Instances(s *Session) []Instance {
	versions := s.Versions
	if len(versions) == 0 {
		versions = []string{""}
	}

	var out []Instance
	for _, v := range versions {
		for _, variants := range crossProduct(s.Axes) {
			out = append(out, Instance{Session: s, Version: v, Variants: variants})
		}
	}
	return out
}

// crossProduct enumerates every combination of axis variants, one ID
// per axis in declaration order. A session with no axes yields a single
// empty combination.
func crossProduct(axes []Axis) [][]string {
	combos := [][]string{nil}
	for _, a := range axes {
		var next [][]string
		for _, combo := range combos {
			for _, v := range a.Variants {
				row := make([]string, len(combo), len(combo)+1)
				copy(row, combo)
				next = append(next, append(row, v))
			}
		}
		combos = next
	}
	return combos
}

// Select resolves a selector string to an ordered list of instances.
//
// Grammar: name[-version][(variant[,variant...])]
//   - name alone selects every instance of the session;
//   - name-version narrows the version axis, keeping all variants;
//   - a parenthesized variant list collapses the named axes to the
//     given values and every unmentioned axis to its first variant;
//     the version axis, when not given explicitly, collapses to
//     defaultVersion.
//
// Unknown sessions, versions, and variant IDs are configuration errors
// surfaced before any environment is prepared.
func (r *Registry) Select(selector, defaultVersion string) ([]Instance, error) {
	name, variants, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}

	s, version, err := r.resolveName(name)
	if err != nil {
		return nil, err
	}

	// no variants: all instances, optionally narrowed by version
	if len(variants) == 0 {
		all := r.Instances(s)
		if version == "" {
			return all, nil
		}
		var narrowed []Instance
		for _, in := range all {
			if in.Version == version {
				narrowed = append(narrowed, in)
			}
		}
		return narrowed, nil
	}

	// variants given: collapse to a single instance
	if version == "" && len(s.Versions) > 0 {
		if contains(s.Versions, defaultVersion) {
			version = defaultVersion
		} else {
			version = s.Versions[len(s.Versions)-1]
		}
	}

	selected := make([]string, len(s.Axes))
	for i, a := range s.Axes {
		selected[i] = a.Variants[0]
	}
	for _, v := range variants {
		idx := axisIndex(s.Axes, v)
		if idx < 0 {
			return nil, fmt.Errorf("session %q has no variant %q", s.Name, v)
		}
		selected[idx] = v
	}

	return []Instance{{Session: s, Version: version, Variants: selected}}, nil
}

// resolveName finds the session for a selector base. Session names may
// themselves contain dashes, so when no exact match exists the base is
// split at each dash from the right looking for name + version.
func (r *Registry) resolveName(name string) (*Session, string, error) {
	if s, ok := r.sessions[name]; ok {
		return s, "", nil
	}
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '-' {
			continue
		}
		if s, ok := r.sessions[name[:i]]; ok {
			version := name[i+1:]
			if !contains(s.Versions, version) {
				return nil, "", fmt.Errorf("session %q does not support version %q", s.Name, version)
			}
			return s, version, nil
		}
	}
	return nil, "", fmt.Errorf("unknown session %q", name)
}

// parseSelector splits "name-version(v1,v2)" into base and variants.
// The version is disambiguated from dashed session names by resolveName.
func parseSelector(selector string) (name string, variants []string, err error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return "", nil, fmt.Errorf("empty selector")
	}

	if i := strings.IndexByte(s, '('); i >= 0 {
		if !strings.HasSuffix(s, ")") {
			return "", nil, fmt.Errorf("selector %q: unterminated variant list", selector)
		}
		list := s[i+1 : len(s)-1]
		s = s[:i]
		for _, v := range strings.Split(list, ",") {
			v = strings.TrimSpace(v)
			if v == "" {
				return "", nil, fmt.Errorf("selector %q: empty variant id", selector)
			}
			variants = append(variants, v)
		}
	}

	if s == "" {
		return "", nil, fmt.Errorf("selector %q: missing session name", selector)
	}
	return s, variants, nil
}

func axisIndex(axes []Axis, variant string) int {
	for i, a := range axes {
		if contains(a.Variants, variant) {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
