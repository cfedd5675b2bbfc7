// Package expr implements the arithmetic expression trees used by
// aperture macro parameters. Trees are immutable once built and are
// evaluated against a binding slice supplied at the aperture's
// definition site, so one template can be instantiated many times.
package expr

import "fmt"

// Node is an expression tree node. Eval computes the node's value
// against vars, where vars[k-1] holds the macro variable $k.
type Node interface {
	Eval(vars []float64) (float64, error)
}

// Const is a numeric literal.
type Const float64

// Eval returns the literal value.
func (c Const) Eval([]float64) (float64, error) { return float64(c), nil }

// Var references macro variable $Index+1.
type Var int

// Eval returns the bound value, or an error when the variable was never
// assigned.
func (v Var) Eval(vars []float64) (float64, error) {
	if int(v) >= len(vars) {
		return 0, fmt.Errorf("variable $%d has not been assigned", int(v)+1)
	}
	return vars[v], nil
}

// Neg is unary minus.
type Neg struct {
	A Node
}

func (n Neg) Eval(vars []float64) (float64, error) {
	a, err := n.A.Eval(vars)
	if err != nil {
		return 0, err
	}
	return -a, nil
}

// Add is a + b.
type Add struct {
	A, B Node
}

func (n Add) Eval(vars []float64) (float64, error) {
	a, b, err := eval2(n.A, n.B, vars)
	if err != nil {
		return 0, err
	}
	return a + b, nil
}

// Sub is a - b.
type Sub struct {
	A, B Node
}

func (n Sub) Eval(vars []float64) (float64, error) {
	a, b, err := eval2(n.A, n.B, vars)
	if err != nil {
		return 0, err
	}
	return a - b, nil
}

// Mul is a * b.
type Mul struct {
	A, B Node
}

func (n Mul) Eval(vars []float64) (float64, error) {
	a, b, err := eval2(n.A, n.B, vars)
	if err != nil {
		return 0, err
	}
	return a * b, nil
}

// Div is a / b. Evaluation fails when b evaluates to zero.
type Div struct {
	A, B Node
}

func (n Div) Eval(vars []float64) (float64, error) {
	a, b, err := eval2(n.A, n.B, vars)
	if err != nil {
		return 0, err
	}
	if b == 0 {
		return 0, fmt.Errorf("division by zero")
	}
	return a / b, nil
}

func eval2(a, b Node, vars []float64) (float64, float64, error) {
	av, err := a.Eval(vars)
	if err != nil {
		return 0, 0, err
	}
	bv, err := b.Eval(vars)
	if err != nil {
		return 0, 0, err
	}
	return av, bv, nil
}
