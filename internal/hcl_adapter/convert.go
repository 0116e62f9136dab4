package hcl_adapter

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// isExprDefined checks if an HCL expression was actually present in the
// source. Omitted optional attributes decode to zero-width placeholder
// expressions.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

// evalMap evaluates an optional attribute that must hold an object or map.
func evalMap(expr hcl.Expression, what string) (map[string]any, error) {
	if !isExprDefined(expr) {
		return nil, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to evaluate %s: %w", what, diags)
	}
	raw, err := ctyValueToInterface(val)
	if err != nil {
		return nil, fmt.Errorf("failed to convert %s: %w", what, err)
	}
	if raw == nil {
		return nil, nil
	}
	out, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object, got %s", what, val.Type().FriendlyName())
	}
	return out, nil
}

// ctyValueToInterface converts a cty.Value to a Go interface{}.
func ctyValueToInterface(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}
	if val.Type().IsPrimitiveType() {
		switch val.Type() {
		case cty.String:
			return val.AsString(), nil
		case cty.Number:
			f, _ := val.AsBigFloat().Float64()
			return f, nil
		case cty.Bool:
			return val.True(), nil
		default:
			return nil, fmt.Errorf("unsupported primitive type: %s", val.Type().FriendlyName())
		}
	}
	if val.Type().IsObjectType() || val.Type().IsMapType() {
		out := make(map[string]any)
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = valInterface
		}
		return out, nil
	}
	if val.Type().IsTupleType() || val.Type().IsListType() || val.Type().IsSetType() {
		var out []any
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			valInterface, err := ctyValueToInterface(v)
			if err != nil {
				return nil, err
			}
			out = append(out, valInterface)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported cty.Type for conversion: %s", val.Type().FriendlyName())
}
