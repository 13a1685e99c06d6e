// Package aspectdef loads aspect definitions from CUE files. Definitions
// are authored declaratively and compiled in-process with the CUE SDK; the
// result feeds the aspect registry at startup.
//
// A definition file looks like:
//
//	aspects: {
//		priority: {
//			type:   "ordered"
//			values: ["low", "medium", "high"]
//			description: "How urgent the work is"
//		}
//		estimate: {
//			type: "numeric"
//			rules: range: {min: 0, max: 100, message: "estimate must be 0-100"}
//		}
//		blocked: {type: "boolean"}
//		due: {type: "duration"}
//		tags: {type: "text", allowMultiple: true}
//	}
package aspectdef

import (
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/kamiazya/scopes/internal/aspect"
)

// CompileError reports a problem in a definition file with its position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads and compiles a CUE definition file.
func Load(path string) ([]aspect.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aspect definitions: %w", err)
	}

	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile aspect definitions: %w", err)
	}
	return Compile(v)
}

// Compile extracts definitions from the "aspects" struct of a compiled CUE
// value.
func Compile(v cue.Value) ([]aspect.Definition, error) {
	aspects := v.LookupPath(cue.ParsePath("aspects"))
	if !aspects.Exists() {
		return nil, &CompileError{Field: "aspects", Message: "aspects struct is required", Pos: v.Pos()}
	}

	iter, err := aspects.Fields()
	if err != nil {
		return nil, &CompileError{Field: "aspects", Message: err.Error(), Pos: aspects.Pos()}
	}

	var defs []aspect.Definition
	for iter.Next() {
		def, err := compileDefinition(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func compileDefinition(name string, v cue.Value) (aspect.Definition, error) {
	key, err := aspect.NewKey(name)
	if err != nil {
		return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	def := aspect.Definition{Key: key}

	typeVal := v.LookupPath(cue.ParsePath("type"))
	if !typeVal.Exists() {
		return aspect.Definition{}, &CompileError{Field: name, Message: "type is required", Pos: v.Pos()}
	}
	typeName, err := typeVal.String()
	if err != nil {
		return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: typeVal.Pos()}
	}

	switch typeName {
	case "ordered":
		values, err := stringList(v.LookupPath(cue.ParsePath("values")))
		if err != nil {
			return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
		}
		if len(values) == 0 {
			return aspect.Definition{}, &CompileError{Field: name, Message: "ordered type requires values", Pos: v.Pos()}
		}
		ordered := aspect.Ordered{}
		for _, s := range values {
			av, err := aspect.NewValue(s)
			if err != nil {
				return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
			}
			ordered.Values = append(ordered.Values, av)
		}
		def.Type = ordered
	case "numeric":
		def.Type = aspect.Numeric{}
	case "boolean":
		def.Type = aspect.Boolean{}
	case "text":
		def.Type = aspect.Text{}
	case "duration":
		def.Type = aspect.Duration{}
	default:
		return aspect.Definition{}, &CompileError{
			Field:   name,
			Message: fmt.Sprintf("unknown type %q: must be ordered, numeric, boolean, text, or duration", typeName),
			Pos:     typeVal.Pos(),
		}
	}

	if descVal := v.LookupPath(cue.ParsePath("description")); descVal.Exists() {
		if def.Description, err = descVal.String(); err != nil {
			return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: descVal.Pos()}
		}
	}
	if multiVal := v.LookupPath(cue.ParsePath("allowMultiple")); multiVal.Exists() {
		if def.AllowMultiple, err = multiVal.Bool(); err != nil {
			return aspect.Definition{}, &CompileError{Field: name, Message: err.Error(), Pos: multiVal.Pos()}
		}
	}

	rules, err := compileRules(name, v.LookupPath(cue.ParsePath("rules")))
	if err != nil {
		return aspect.Definition{}, err
	}
	def.Rules = rules

	return def, nil
}

// compileRules reads the optional rules struct: range {min, max, message}
// and pattern {regex, message}.
func compileRules(name string, v cue.Value) ([]aspect.Rule, error) {
	if !v.Exists() {
		return nil, nil
	}

	var rules []aspect.Rule

	if rangeVal := v.LookupPath(cue.ParsePath("range")); rangeVal.Exists() {
		r := aspect.Range{}
		if minVal := rangeVal.LookupPath(cue.ParsePath("min")); minVal.Exists() {
			f, err := minVal.Float64()
			if err != nil {
				return nil, &CompileError{Field: name, Message: err.Error(), Pos: minVal.Pos()}
			}
			r.Min = &f
		}
		if maxVal := rangeVal.LookupPath(cue.ParsePath("max")); maxVal.Exists() {
			f, err := maxVal.Float64()
			if err != nil {
				return nil, &CompileError{Field: name, Message: err.Error(), Pos: maxVal.Pos()}
			}
			r.Max = &f
		}
		if msgVal := rangeVal.LookupPath(cue.ParsePath("message")); msgVal.Exists() {
			msg, err := msgVal.String()
			if err != nil {
				return nil, &CompileError{Field: name, Message: err.Error(), Pos: msgVal.Pos()}
			}
			r.Message = msg
		}
		rules = append(rules, r)
	}

	if patVal := v.LookupPath(cue.ParsePath("pattern")); patVal.Exists() {
		regexVal := patVal.LookupPath(cue.ParsePath("regex"))
		if !regexVal.Exists() {
			return nil, &CompileError{Field: name, Message: "pattern rule requires regex", Pos: patVal.Pos()}
		}
		src, err := regexVal.String()
		if err != nil {
			return nil, &CompileError{Field: name, Message: err.Error(), Pos: regexVal.Pos()}
		}
		compiled, err := regexp.Compile(src)
		if err != nil {
			return nil, &CompileError{Field: name, Message: err.Error(), Pos: regexVal.Pos()}
		}
		p := aspect.Pattern{Regexp: compiled}
		if msgVal := patVal.LookupPath(cue.ParsePath("message")); msgVal.Exists() {
			if p.Message, err = msgVal.String(); err != nil {
				return nil, &CompileError{Field: name, Message: err.Error(), Pos: msgVal.Pos()}
			}
		}
		rules = append(rules, p)
	}

	return rules, nil
}

func stringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
