package codereview

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	funcHeaderRe = regexp.MustCompile(`def\s+([\p{L}\p{N}_]+)\s*\([^)]*\):`)
	nextDefRe    = regexp.MustCompile(`\ndef\s`)
	globalVarRe  = regexp.MustCompile(`(?m)^[A-Z_][A-Z0-9_]*\s*=`)
	bareExceptRe = regexp.MustCompile(`except\s*:`)
	printCallRe  = regexp.MustCompile(`\bprint\s*\(`)
)

const (
	longFunctionLines   = 50
	mediumFunctionLines = 30
	maxNesting          = 5
	maxGlobals          = 5
	maxLineLength       = 100
	maxPrints           = 3
	maxFunctions        = 10
	refactorComplexity  = 3
)

// functionInfo is what extraction learns about one def.
type functionInfo struct {
	Name  string
	Lines int
}

// functionBody returns the source of the first def named name, from its
// header up to the next top-level-looking def or the end of code.
func functionBody(code, name string) (string, bool) {
	re, err := regexp.Compile(`def\s+` + regexp.QuoteMeta(name) + `\s*\([^)]*\):`)
	if err != nil {
		return "", false
	}
	loc := re.FindStringIndex(code)
	if loc == nil {
		return "", false
	}
	rest := code[loc[1]:]
	if next := nextDefRe.FindStringIndex(rest); next != nil {
		return code[loc[0] : loc[1]+next[0]], true
	}
	return code[loc[0]:], true
}

// extractFunctions lists every def header in code. A name defined more
// than once is listed each time, measured by its first definition.
func extractFunctions(code string) []functionInfo {
	var out []functionInfo
	for _, m := range funcHeaderRe.FindAllStringSubmatch(code, -1) {
		body, ok := functionBody(code, m[1])
		if !ok {
			continue
		}
		out = append(out, functionInfo{Name: m[1], Lines: strings.Count(body, "\n")})
	}
	return out
}

// nestingLevel counts indented control statements in body.
func nestingLevel(body string) int {
	return strings.Count(body, "    if ") +
		strings.Count(body, "    for ") +
		strings.Count(body, "    while ")
}

// complexity scores one function and returns the issues it raises.
func complexity(code string, fn functionInfo) (int, []string) {
	score := 0
	var issues []string

	switch {
	case fn.Lines > longFunctionLines:
		score += 3
		issues = append(issues, fmt.Sprintf("Function '%s' is too long (%d lines)", fn.Name, fn.Lines))
	case fn.Lines > mediumFunctionLines:
		score += 2
	}

	if body, ok := functionBody(code, fn.Name); ok && nestingLevel(body) > maxNesting {
		score += 2
		issues = append(issues, fmt.Sprintf("Function '%s' has high nesting level", fn.Name))
	}
	return score, issues
}

// detectIssues runs the whole-file checks in a fixed order.
func detectIssues(code string) []string {
	issues := []string{}

	if !strings.Contains(code, `"""`) && !strings.Contains(code, `'''`) {
		issues = append(issues, "Missing docstrings")
	}

	if globals := len(globalVarRe.FindAllStringIndex(code, -1)); globals > maxGlobals {
		issues = append(issues, fmt.Sprintf("Too many global variables (%d)", globals))
	}

	var long []string
	for i, line := range strings.Split(code, "\n") {
		if utf8.RuneCountInString(line) > maxLineLength {
			long = append(long, fmt.Sprint(i+1))
		}
	}
	if len(long) > 0 {
		if len(long) > 3 {
			long = long[:3]
		}
		issues = append(issues, fmt.Sprintf("Lines too long: [%s]", strings.Join(long, ", ")))
	}

	if bareExceptRe.MatchString(code) {
		issues = append(issues, "Bare except clause found - be specific")
	}

	if prints := len(printCallRe.FindAllStringIndex(code, -1)); prints > maxPrints {
		issues = append(issues, fmt.Sprintf("Too many print statements (%d) - use logging", prints))
	}
	return issues
}

// qualityScore is 100 less 10 per issue and 5 per complexity point,
// clamped to [0, 100].
func qualityScore(issueCount, totalComplexity int) int {
	score := 100 - issueCount*10 - totalComplexity*5
	return max(0, min(100, score))
}
