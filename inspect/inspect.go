// Package inspect discovers the stdin inputs a python script expects by
// scanning its source for input(...) calls. The scan is a line-based
// approximation, not a full parser: it reports calls in source order and a
// prompt only when the first argument is a plain string literal, which is
// all the run form needs to label its input fields.
package inspect

import (
	"os"
	"regexp"
	"strings"
)

// An InputCall describes one input(...) call found in a script, 1-indexed in
// source order. Prompt is nil unless the call had a string-literal argument.
type InputCall struct {
	Index  int     `json:"index"`
	Prompt *string `json:"prompt"`
}

// input( not preceded by an identifier character or a dot, with an optional
// single- or double-quoted first argument.
var inputCallRe = regexp.MustCompile(
	`(^|[^\w.])input\s*\(\s*(?:"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)')?`)

// InputCalls scans a python source file. Any read or scan problem yields an
// empty result rather than an error -- input discovery is advisory only.
func InputCalls(path string) []InputCall {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return scan(string(src))
}

func scan(src string) []InputCall {
	var calls []InputCall
	for _, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		for _, m := range inputCallRe.FindAllStringSubmatchIndex(line, -1) {
			call := InputCall{Index: len(calls) + 1}
			// Group 2 is a double-quoted literal, group 3 single-quoted;
			// a start index of -1 means the group did not participate.
			for _, g := range []int{2, 3} {
				if m[2*g] >= 0 {
					p := unescape(line[m[2*g]:m[2*g+1]])
					call.Prompt = &p
					break
				}
			}
			calls = append(calls, call)
		}
	}
	return calls
}

// unescape handles the escapes that commonly appear in prompt strings.
func unescape(s string) string {
	r := strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\'`, `'`, `\n`, "\n", `\t`, "\t")
	return r.Replace(s)
}
