/*
Package expr provides a small, fixed-grammar condition language for
declarative graph edges.

# Overview

Expressions are parsed once with Compile and evaluated many times against a
variables map. Nothing outside the grammar below can be expressed: there are
no function calls, assignments or attribute access beyond map keys and list
indexes, so a condition written by an untrusted caller can only read the
variables it is given.

# Expression Syntax

	expr    := or
	or      := and { "or" and }
	and     := unary { "and" unary }
	unary   := ("not" | "!") unary | compare
	compare := operand [ op operand ]
	op      := "==" | "!=" | "<" | "<=" | ">" | ">=" | "contains" | "in" | custom
	operand := string | number | true | false | null | nil | path | "(" expr ")"
	path    := ident { "." ident | "[" string "]" | "[" integer "]" }

Comparisons do not chain: "a < b < c" is a syntax error.

# Operators

	==  !=     numeric when both sides are numbers, value equality otherwise
	< <= > >=  two numbers or two strings; anything else is an *EvalError
	contains   substring, list element or map key
	in         contains with the operands swapped
	and or     short-circuit
	not !      prefix negation

# Values

  - Quoted strings: 'hello' or "hello", with \n \t \\ \' \" escapes
  - Numbers: 42, 3.14, -1
  - Booleans: true, false
  - Null: null, nil
  - Paths: count, result.score, items[0], scores['final']

Unknown variables and missing keys resolve to nil rather than failing:
"approved == true" on a state without approved is false. Ordering a nil
against a number ("retries > 3") is still an *EvalError.

# Examples

	vars := map[string]any{"quality_score": 85, "iteration": 1}
	ok, _ := expr.Eval("quality_score >= 70 or iteration >= 3", vars) // true

	e, err := expr.Compile("'security' in tags and not draft")
	ok, err = e.Eval(map[string]any{"tags": []any{"security"}, "draft": false})

# Custom Operators

	e := expr.New(
	    expr.WithCustomOperator("matches", func(left, right any) bool {
	        matched, _ := regexp.MatchString(fmt.Sprint(right), fmt.Sprint(left))
	        return matched
	    }),
	)
	ok, _ := e.Evaluate("name matches '^test.*'", vars)

Custom operator names must be identifiers and take the same precedence as
the built-in comparisons.

# Truthiness

A bare operand is converted to bool:

  - nil: false
  - bool: the boolean value
  - string: false if empty
  - numbers: false if zero
  - slices, arrays and maps: false if empty
  - everything else: true
*/
package expr
