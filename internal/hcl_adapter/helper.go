package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/psyexpgo/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with non-nil,
// zero-width expression objects, so a simple nil check is insufficient.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, while a placeholder for an
	// omitted optional attribute has a zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)

	return isDefined
}

// evalString evaluates an optional string attribute. An omitted attribute
// yields the empty string.
func evalString(ctx context.Context, expr hcl.Expression, attrName string, evalCtx *hcl.EvalContext) (string, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return "", nil
	}
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return "", fmt.Errorf("invalid value for '%s': %w", attrName, diags)
	}
	if val.IsNull() {
		return "", nil
	}
	val, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", fmt.Errorf("'%s' must be a string: %w", attrName, err)
	}
	var out string
	if err := gocty.FromCtyValue(val, &out); err != nil {
		return "", fmt.Errorf("'%s': %w", attrName, err)
	}
	return out, nil
}

// evalStringMap evaluates an attribute holding an object or map whose
// values are converted to strings. Numbers and bools are accepted.
func evalStringMap(expr hcl.Expression, attrName string, evalCtx *hcl.EvalContext) (map[string]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid value for '%s': %w", attrName, diags)
	}
	if val.IsNull() {
		return map[string]string{}, nil
	}
	if !val.Type().IsObjectType() && !val.Type().IsMapType() {
		return nil, fmt.Errorf("'%s' must be an object, got %s", attrName, val.Type().FriendlyName())
	}
	out := make(map[string]string, val.LengthInt())
	for k, v := range val.AsValueMap() {
		if v.IsNull() {
			continue
		}
		sv, err := convert.Convert(v, cty.String)
		if err != nil {
			return nil, fmt.Errorf("'%s.%s' must be a string, number or bool: %w", attrName, k, err)
		}
		out[k] = sv.AsString()
	}
	return out, nil
}
