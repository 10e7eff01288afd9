// Package namespace tracks the identifiers that a generated experiment script
// uses, so that names chosen by users for routines, components, loops and
// condition columns never collide with each other or with names reserved by
// Python, numpy, the runtime library or the script scaffolding itself.
package namespace

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

var (
	validVarRe  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	invalidChar = regexp.MustCompile(`[^A-Za-z0-9_]`)
	pluralSufRe = regexp.MustCompile(`^(.*)s(_\d+)$`)
)

var irregularPlurals = []struct {
	plural   *regexp.Regexp
	singular string
}{
	{regexp.MustCompile(`(?i)stimuli`), "stimulus"},
	{regexp.MustCompile(`(?i)mice`), "mouse"},
	{regexp.MustCompile(`(?i)people`), "person"},
}

// Category names reported by Categories.
const (
	CategoryUser      = "user"
	CategoryBuilder   = "builder"
	CategoryConstants = "constants"
	CategoryPsychopy  = "psychopy"
	CategoryNumpy     = "numpy"
	CategoryKeywords  = "keywords"
)

// NameSpace holds the reserved identifier sets and the names registered by
// the user. The zero value is not usable; call New.
type NameSpace struct {
	numpy     map[string]struct{}
	keywords  map[string]struct{}
	psychopy  map[string]struct{}
	constants map[string]struct{}
	builder   map[string]struct{}

	// user may contain duplicates; Collisions reports them.
	user []string
}

// New returns a NameSpace with the standard reserved names and no user names.
func New() *NameSpace {
	return &NameSpace{
		numpy:     toSet(numpyNames),
		keywords:  toSet(keywordNames),
		psychopy:  toSet(psychopyNames),
		constants: toSet(constantNames),
		builder:   toSet(builderNames),
	}
}

func toSet(names []string) map[string]struct{} {
	s := make(map[string]struct{}, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// IsValid reports whether name is a syntactically legal identifier.
func (ns *NameSpace) IsValid(name string) bool {
	return validVarRe.MatchString(name)
}

// Exists returns a human-readable description of where name is already in
// use, or the empty string if it is free.
func (ns *NameSpace) Exists(name string) string {
	switch {
	case slices.Contains(ns.user, name):
		return "one of your Components, Routines, or condition parameters"
	case has(ns.builder, name):
		return "Builder variable"
	case has(ns.constants, name):
		return "Psychopy constant"
	case has(ns.psychopy, name):
		return "Psychopy module"
	case has(ns.numpy, name):
		return "numpy function"
	case has(ns.keywords, name):
		return "python keyword"
	}
	return ""
}

// Categories lists every category containing name.
func (ns *NameSpace) Categories(name string) []string {
	var found []string
	if slices.Contains(ns.user, name) {
		found = append(found, CategoryUser)
	}
	for _, c := range []struct {
		name string
		set  map[string]struct{}
	}{
		{CategoryBuilder, ns.builder},
		{CategoryConstants, ns.constants},
		{CategoryPsychopy, ns.psychopy},
		{CategoryNumpy, ns.numpy},
		{CategoryKeywords, ns.keywords},
	} {
		if has(c.set, name) {
			found = append(found, c.name)
		}
	}
	return found
}

func has(set map[string]struct{}, name string) bool {
	_, ok := set[name]
	return ok
}

// Add registers user names. Empty names are ignored.
func (ns *NameSpace) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			ns.user = append(ns.user, n)
		}
	}
}

// Remove unregisters one occurrence of each given user name.
func (ns *NameSpace) Remove(names ...string) {
	for _, n := range names {
		if i := slices.Index(ns.user, n); i >= 0 {
			ns.user = slices.Delete(ns.user, i, i+1)
		}
	}
}

// Rename replaces a registered user name in place.
func (ns *NameSpace) Rename(oldName, newName string) {
	if i := slices.Index(ns.user, oldName); i >= 0 {
		ns.user[i] = newName
	}
}

// User returns a copy of the registered user names.
func (ns *NameSpace) User() []string {
	return slices.Clone(ns.user)
}

// Collisions returns user names that are also reserved by the builder, the
// runtime library or numpy, plus user names registered more than once.
// It returns nil when there are none.
func (ns *NameSpace) Collisions() []string {
	var dups []string
	for _, n := range ns.user {
		if (has(ns.builder, n) || has(ns.psychopy, n) || has(ns.numpy, n)) && !slices.Contains(dups, n) {
			dups = append(dups, n)
		}
	}
	sorted := slices.Clone(ns.user)
	sort.Strings(sorted)
	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i] == sorted[i+1] {
			dups = append(dups, sorted[i])
		}
	}
	return dups
}

// IsPossiblyDerivable returns a warning if name looks like one the script
// generator derives automatically (loop indexes, routine clocks and so on),
// or the empty string otherwise.
func IsPossiblyDerivable(name string) string {
	if strings.HasPrefix(name, "this") ||
		strings.HasPrefix(name, "these") ||
		strings.HasPrefix(name, "continue") ||
		strings.HasSuffix(name, "Clock") ||
		strings.Contains(strings.ToLower(name), "component") {
		return "Avoid `this`, `these`, `continue`, `Clock`, or `component` in name"
	}
	return ""
}

// MakeValid returns a legal identifier derived from name that is not yet in
// use, using "var" as the prefix for names that cannot start an identifier.
// The result is not registered.
func (ns *NameSpace) MakeValid(name string) string {
	return ns.MakeValidWithPrefix(name, "var")
}

// MakeValidWithPrefix is MakeValid with a custom prefix. Bad characters are
// replaced by underscores and a numeric suffix is added or incremented until
// the name is unique. A name that is already legal and unused is returned
// unchanged.
func (ns *NameSpace) MakeValidWithPrefix(name, prefix string) string {
	if name == "" {
		name = prefix + "_1"
	}
	if unicode.IsDigit([]rune(name)[0]) {
		name = prefix + "_" + name
	}
	name = invalidChar.ReplaceAllString(name, "_")

	// Skip _1: the first duplicate becomes _2.
	i := 2
	if ns.Exists(name) != "" {
		if idx := strings.LastIndex(name, "_"); idx >= 0 {
			if n, err := strconv.Atoi(name[idx+1:]); err == nil {
				i = n + 1
				name = name[:idx]
			}
		}
	}
	stem := name + "_"
	for ns.Exists(name) != "" {
		name = stem + strconv.Itoa(i)
		i++
	}
	return name
}

// MakeLoopIndex derives a readable per-iteration variable name from a loop
// name: "trials" becomes "thisTrial", "stimuli" becomes "thisStimulus".
func (ns *NameSpace) MakeLoopIndex(name string) string {
	newName := name
	for _, irr := range irregularPlurals {
		newName = irr.plural.ReplaceAllString(newName, irr.singular)
	}
	isSingularIrregular := false
	for _, irr := range irregularPlurals {
		if strings.ToLower(newName) == irr.singular {
			isSingularIrregular = true
		}
	}
	if strings.HasSuffix(newName, "s") && !isSingularIrregular {
		newName = newName[:len(newName)-1]
	} else if m := pluralSufRe.FindStringSubmatch(newName); m != nil {
		newName = m[1] + m[2]
	}
	if newName == "" {
		return ns.MakeValid("this")
	}
	return ns.MakeValid("this" + strings.ToUpper(newName[:1]) + newName[1:])
}
