package experiment

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vk/psyexpgo/internal/codegen"
	"github.com/vk/psyexpgo/internal/pyexpr"
)

var (
	// ErrUnknownValType is returned when a Param's value type has no rendering.
	ErrUnknownValType = errors.New("can't represent a Param of this type")
	// ErrIntOutOfRange is returned when an int Param does not fit in 64 bits.
	ErrIntOutOfRange = errors.New("int value out of range")
)

// ValType tags how a Param value is rendered into code.
type ValType string

const (
	ValNum          ValType = "num"
	ValInt          ValType = "int"
	ValStr          ValType = "str"
	ValExtendedStr  ValType = "extendedStr"
	ValFile         ValType = "file"
	ValTable        ValType = "table"
	ValCode         ValType = "code"
	ValExtendedCode ValType = "extendedCode"
	ValBool         ValType = "bool"
	ValList         ValType = "list"
	ValColor        ValType = "color"
	ValFixedList    ValType = "fixedList"
	ValFileList     ValType = "fileList"
	ValDict         ValType = "dict"
)

// Update timings of a Param.
const (
	UpdateConstant = "constant"
	UpdateRepeat   = "set every repeat"
	UpdateFrame    = "set every frame"
)

// Param is a single typed value owned by a component, loop or the settings.
// Values are kept in their textual form, exactly as stored in experiment
// files, and are only interpreted when code is generated.
type Param struct {
	Val            string
	ValType        ValType
	InputType      string
	AllowedVals    []string
	AllowedTypes   []string
	AllowedUpdates []string
	Updates        string
	Hint           string
	Label          string
	Categ          string
	CanBePath      bool
}

// Clone returns a deep copy of p.
func (p *Param) Clone() *Param {
	c := *p
	c.AllowedVals = append([]string(nil), p.AllowedVals...)
	c.AllowedTypes = append([]string(nil), p.AllowedTypes...)
	c.AllowedUpdates = append([]string(nil), p.AllowedUpdates...)
	return &c
}

// Bool interprets the value as a boolean.
func (p *Param) Bool() bool {
	return parseBool(p.Val)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Float parses the value as a number, reporting whether it is numeric.
func (p *Param) Float() (float64, bool) {
	return canBeNumeric(p.Val)
}

func canBeNumeric(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// IsBlank reports whether the value is empty or one of the "no value" markers.
func (p *Param) IsBlank() bool {
	return isBlank(p.Val)
}

func isBlank(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "None", "none", "-1":
		return true
	}
	return false
}

// IsCode reports whether the value will be emitted as code rather than as a
// quoted literal.
func (p *Param) IsCode() bool {
	switch p.ValType {
	case ValCode, ValExtendedCode, ValNum, ValInt, ValList, ValFixedList, ValDict:
		return true
	case ValStr, ValExtendedStr, ValFile, ValTable, ValColor:
		_, code := dollarCode(p.Val)
		return code
	}
	return false
}

// dollarCode reports whether a string value is a "$"-prefixed expression and
// returns the expression without the marker.
func dollarCode(val string) (string, bool) {
	trimmed := strings.TrimSpace(val)
	if strings.HasPrefix(trimmed, "$") {
		return strings.TrimSpace(trimmed[1:]), true
	}
	return val, false
}

// Code renders the value as source text for the given target.
func (p *Param) Code(target codegen.Target) (string, error) {
	val := p.Val
	switch p.ValType {
	case ValNum:
		val = strings.TrimPrefix(strings.TrimSpace(val), "$")
		if val == "" || val == "None" {
			return noneLiteral(target), nil
		}
		if f, ok := canBeNumeric(val); ok {
			return pyexpr.FormatFloat(f), nil
		}
		return translateCode(val, target), nil

	case ValInt:
		val = strings.TrimPrefix(strings.TrimSpace(val), "$")
		if f, ok := canBeNumeric(val); ok {
			// NaN fails both comparisons.
			if !(f >= math.MinInt64 && f < -math.MinInt64) {
				return "", fmt.Errorf("%w: %q", ErrIntOutOfRange, val)
			}
			return strconv.FormatInt(int64(f), 10), nil
		}
		if val == "" {
			return noneLiteral(target), nil
		}
		return translateCode(val, target), nil

	case ValStr, ValExtendedStr, ValFile, ValTable, ValColor:
		if code, ok := dollarCode(val); ok {
			return translateCode(code, target), nil
		}
		val = strings.ReplaceAll(val, `\$`, "$")
		if p.ValType == ValFile || p.ValType == ValTable {
			val = strings.ReplaceAll(val, `\`, "/")
		}
		if target == codegen.PsychoJS {
			return pyexpr.JSQuote(val), nil
		}
		return pyexpr.Repr(val), nil

	case ValCode:
		val = strings.TrimPrefix(val, `\`)
		val = strings.TrimPrefix(val, "$")
		return translateCode(val, target), nil

	case ValExtendedCode:
		return strings.TrimPrefix(val, "$"), nil

	case ValBool:
		b := parseBool(val)
		if target == codegen.PsychoJS {
			return strconv.FormatBool(b), nil
		}
		if b {
			return "True", nil
		}
		return "False", nil

	case ValList:
		code, _ := dollarCode(val)
		return toList(code, target), nil

	case ValFixedList, ValDict:
		return translateCode(val, target), nil

	case ValFileList:
		items, err := pyexpr.ParseStringList(val)
		if err != nil {
			items = []string{val}
		}
		if target == codegen.PsychoJS {
			quoted := make([]string, len(items))
			for i, it := range items {
				quoted[i] = pyexpr.JSQuote(it)
			}
			return "[" + strings.Join(quoted, ", ") + "]", nil
		}
		return pyexpr.FormatValue(items), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownValType, p.ValType)
}

func noneLiteral(target codegen.Target) string {
	if target == codegen.PsychoJS {
		return "undefined"
	}
	return "None"
}

// translateCode returns Python code unchanged and converts it to JavaScript
// for the browser target. Expressions outside the translatable subset are
// passed through verbatim.
func translateCode(code string, target codegen.Target) string {
	if target != codegen.PsychoJS || strings.TrimSpace(code) == "" {
		return code
	}
	js, err := pyexpr.ToJS(code)
	if err != nil {
		return code
	}
	return js
}

// toList wraps a comma-separated value in brackets unless it already is a
// list, a tuple or a variable name.
func toList(val string, target codegen.Target) string {
	val = strings.TrimSpace(val)
	val = strings.TrimRight(val, ",")
	switch {
	case val == "":
		val = "[]"
	case strings.HasPrefix(val, "[") && strings.HasSuffix(val, "]"):
	case strings.HasPrefix(val, "(") && strings.HasSuffix(val, ")"):
	case pyexpr.IsValidVariable(val):
	default:
		val = "[" + val + "]"
	}
	return translateCode(val, target)
}
