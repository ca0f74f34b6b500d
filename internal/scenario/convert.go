package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/wiresim/internal/ctxlog"
	"github.com/vk/wiresim/internal/value"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined reports whether an optional attribute was actually written.
// The decoder fills omitted optional expressions with zero-width
// placeholders, so a nil check alone is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", r.String(),
		"is_defined", defined,
	)
	return defined
}

// evalExpr evaluates a constant expression into a Value.
func evalExpr(expr hcl.Expression) (value.Value, error) {
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return value.Null(), diags
	}
	return ctyToValue(v)
}

// ctyToValue recursively converts a cty.Value into a Value.
func ctyToValue(v cty.Value) (value.Value, error) {
	if v.IsNull() {
		return value.Null(), nil
	}
	if !v.IsKnown() {
		return value.Null(), errors.New("value is not known")
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return value.String(v.AsString()), nil

	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return value.Null(), fmt.Errorf("could not convert number to float64: %w", err)
		}
		return value.Number(f), nil

	case ty == cty.Bool:
		return value.Bool(v.True()), nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		items := make([]value.Value, 0, v.LengthInt())
		it := v.ElementIterator()
		for i := 0; it.Next(); i++ {
			_, el := it.Element()
			item, err := ctyToValue(el)
			if err != nil {
				return value.Null(), fmt.Errorf("at index %d: %w", i, err)
			}
			items = append(items, item)
		}
		return value.List(items...), nil

	case ty.IsObjectType() || ty.IsMapType():
		rec := make(value.Record, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			k, el := it.Element()
			key := k.AsString()
			item, err := ctyToValue(el)
			if err != nil {
				return value.Null(), fmt.Errorf("in attribute '%s': %w", key, err)
			}
			rec[key] = item
		}
		return value.Object(rec), nil

	default:
		return value.Null(), fmt.Errorf("unsupported type %s", ty.FriendlyName())
	}
}
