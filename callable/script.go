package callable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/lucerna-run/workflow-go/token"
)

// ScriptFromString is a restricted expression language for the script
// activity type (§4.5: "Script-from-string evaluation is an open hazard
// ... implementations may restrict to pre-registered callables"). Rather
// than evaluate an arbitrary expression language, a script here is a
// sequence of "dest := src" assignments, each a gjson path read from the
// current data merged via an sjson path write into the delta. No
// arithmetic, no function calls, no control flow: just field projection
// and renaming, which covers the common "map this field to that field"
// use case without embedding a general-purpose interpreter.
//
// Example script:
//
//	total := order.amount
//	customer := order.customer.name
//
// Lines are separated by newlines or semicolons; blank lines are ignored.
type ScriptFromString struct {
	assignments []assignment
}

type assignment struct {
	dest string
	src  string
}

// CompileScript parses a script body into a ScriptFromString. Returns an
// error for malformed assignment lines rather than silently ignoring them,
// so a typo in a definition document fails when engine.Builder builds the
// engine.
func CompileScript(script string) (*ScriptFromString, error) {
	var out ScriptFromString
	for _, line := range splitStatements(script) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("callable: invalid script statement %q, expected \"dest := src\"", line)
		}
		out.assignments = append(out.assignments, assignment{
			dest: strings.TrimSpace(parts[0]),
			src:  strings.TrimSpace(parts[1]),
		})
	}
	return &out, nil
}

func splitStatements(script string) []string {
	script = strings.ReplaceAll(script, ";", "\n")
	return strings.Split(script, "\n")
}

// Run evaluates every assignment against data and returns the resulting
// delta. A source path that matches nothing leaves the destination unset
// rather than erroring, mirroring a missing-field no-op.
func (s *ScriptFromString) Run(data token.Data) (token.Data, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("callable: script input not JSON-serializable: %w", err)
	}

	deltaJSON := []byte("{}")
	for _, a := range s.assignments {
		result := gjson.GetBytes(raw, a.src)
		if !result.Exists() {
			continue
		}
		deltaJSON, err = sjson.SetBytes(deltaJSON, a.dest, result.Value())
		if err != nil {
			return nil, fmt.Errorf("callable: script assignment %q failed: %w", a.dest, err)
		}
	}

	var delta token.Data
	if err := json.Unmarshal(deltaJSON, &delta); err != nil {
		return nil, fmt.Errorf("callable: script output not valid JSON: %w", err)
	}
	return delta, nil
}

// AsWorkFn adapts the compiled script to the WorkFn signature so it can be
// registered or used directly by an activity worker.
func (s *ScriptFromString) AsWorkFn() WorkFn {
	return func(_ context.Context, data token.Data) (token.Data, error) {
		return s.Run(data)
	}
}
