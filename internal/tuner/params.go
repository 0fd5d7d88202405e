// Package tuner extracts numeric tunable constants from generated firmware
// source and rewrites them in place. Parameters are a transient view of the
// source text, re-derived on every read; the source file is the only state.
//
// The generated-source grammar is constrained to simple declarations, so
// pattern matching over the text is sufficient; nothing here parses C++.
package tuner

import (
	"fmt"
	"regexp"
)

// Parameter kinds.
const (
	KindDefine = "define"
	KindConst  = "const"
)

// Parameter is one tunable numeric declaration found in module source.
type Parameter struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Line  string `json:"line"`
}

// numberPattern matches the numeric literal portion of a declaration,
// including an optional float suffix.
const numberPattern = `[-+]?[0-9]*\.?[0-9]+f?`

var (
	// #define SENSITIVITY 0.5 / #define ALARM_TIMEOUT 5000
	defineRegex = regexp.MustCompile(`#define\s+([A-Z_][A-Z0-9_]*)\s+(` + numberPattern + `)`)

	// static constexpr uint32_t INTERVAL = 1000;
	constRegex = regexp.MustCompile(`(?:static\s+)?(?:constexpr|const)\s+(?:float|int|uint32_t|double)\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*=\s*(` + numberPattern + `);`)
)

// Extract scans module source for tunable declarations. It returns a
// ParseError when nothing in the source matches either pattern class.
func Extract(content string) ([]Parameter, error) {
	var params []Parameter

	for _, m := range defineRegex.FindAllStringSubmatch(content, -1) {
		params = append(params, Parameter{
			Type:  KindDefine,
			Name:  m[1],
			Value: m[2],
			Line:  m[0],
		})
	}

	for _, m := range constRegex.FindAllStringSubmatch(content, -1) {
		params = append(params, Parameter{
			Type:  KindConst,
			Name:  m[1],
			Value: m[2],
			Line:  m[0],
		})
	}

	if len(params) == 0 {
		return nil, &ParseError{}
	}
	return params, nil
}

// Apply rewrites the value portion of each named declaration, leaving every
// other byte of the source untouched. Names that match no declaration are
// ignored, so partial updates are fine. It returns the rewritten source and
// the number of declarations changed.
func Apply(content string, updates map[string]string) (string, int) {
	changed := 0
	for name, newValue := range updates {
		quoted := regexp.QuoteMeta(name)

		defineUpdate := regexp.MustCompile(`(#define\s+` + quoted + `\s+)(` + numberPattern + `)`)
		if defineUpdate.MatchString(content) {
			content = defineUpdate.ReplaceAllString(content, "${1}"+newValue)
			changed++
		}

		constUpdate := regexp.MustCompile(`((?:constexpr|const)\s+(?:float|int|uint32_t|double)\s+` + quoted + `\s*=\s*)(` + numberPattern + `)`)
		if constUpdate.MatchString(content) {
			content = constUpdate.ReplaceAllString(content, "${1}"+newValue)
			changed++
		}
	}
	return content, changed
}

// ParseError indicates the source contained no declarations matching the
// expected tunable patterns.
type ParseError struct {
	Path string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("no tunable parameters found in %s", e.Path)
	}
	return "no tunable parameters found"
}
