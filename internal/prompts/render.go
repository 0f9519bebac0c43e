package prompts

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// placeholderPattern matches escaped braces and {name} placeholders.
var placeholderPattern = regexp.MustCompile(`\{\{|\}\}|\{(\w+)\}`)

// Render substitutes {name} placeholders in tmpl with values from vars.
// "{{" and "}}" produce literal braces. Every placeholder must have a value;
// values without a placeholder are ignored.
func Render(tmpl string, vars map[string]any) (string, error) {
	var missing []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		name := m[1]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}

	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		switch match {
		case "{{":
			return "{"
		case "}}":
			return "}"
		}
		return fmt.Sprint(vars[match[1:len(match)-1]])
	})
	return out, nil
}

// Placeholders returns the distinct placeholder names used by tmpl, sorted.
func Placeholders(tmpl string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if m[1] != "" && !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	sort.Strings(names)
	return names
}
