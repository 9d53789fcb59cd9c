package expr

import (
	"fmt"
	"reflect"
	"strings"
)

// Compare applies a built-in operator to two values.
// Returns an error for unknown operators and for operands the operator
// cannot handle.
func Compare(left, right any, op string) (bool, error) {
	switch op {
	case "==":
		return equals(left, right), nil
	case "!=":
		return !equals(left, right), nil
	case "<", "<=", ">", ">=":
		return order(left, right, op)
	case "contains":
		return contains(left, right, op)
	case "in":
		return contains(right, left, op)
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// equals compares numerically when both sides are numbers and by value
// otherwise.
func equals(left, right any) bool {
	lf, lok := toNumber(left)
	rf, rok := toNumber(right)
	if lok && rok {
		return lf == rf
	}
	if lok != rok {
		return false
	}
	return reflect.DeepEqual(left, right)
}

func order(left, right any, op string) (bool, error) {
	if lf, lok := toNumber(left); lok {
		if rf, rok := toNumber(right); rok {
			switch op {
			case "<":
				return lf < rf, nil
			case "<=":
				return lf <= rf, nil
			case ">":
				return lf > rf, nil
			default:
				return lf >= rf, nil
			}
		}
	}

	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		c := strings.Compare(ls, rs)
		switch op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		default:
			return c >= 0, nil
		}
	}

	return false, &EvalError{Op: op, Left: left, Right: right}
}

// contains reports whether container holds item: a substring for strings,
// an element for slices and arrays, a key for maps. A nil container holds
// nothing.
func contains(container, item any, op string) (bool, error) {
	if container == nil {
		return false, nil
	}
	if s, ok := container.(string); ok {
		sub, ok := item.(string)
		if !ok {
			sub = fmt.Sprint(item)
		}
		return strings.Contains(s, sub), nil
	}

	rv := reflect.ValueOf(container)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equals(rv.Index(i).Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		for _, k := range rv.MapKeys() {
			if equals(k.Interface(), item) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, &EvalError{Op: op, Left: container, Right: item}
	}
}
