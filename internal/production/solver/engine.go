package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/rsned/production-planner/pkg/production"
)

// DefaultTolerance is the simplex pivot tolerance.
const DefaultTolerance = 1e-9

// Engine solves a Model.
//
// Solve returns ErrInfeasible, ErrUnbounded, ErrTimeout, ErrCancelled or
// ErrEngineFailure (possibly wrapped) when no optimal solution is found.
type Engine interface {
	Solve(ctx context.Context, m *Model) (*production.Solution, error)
}

// SimplexEngine solves models with gonum's simplex implementation.
type SimplexEngine struct {
	Tolerance float64
}

// NewSimplexEngine creates a SimplexEngine. A non-positive tolerance
// selects DefaultTolerance.
func NewSimplexEngine(tolerance float64) *SimplexEngine {
	return &SimplexEngine{Tolerance: tolerance}
}

func (e *SimplexEngine) tolerance() float64 {
	if e == nil || e.Tolerance <= 0 {
		return DefaultTolerance
	}
	return e.Tolerance
}

// Solve converts m to standard form and runs the simplex method. The
// simplex call runs on its own goroutine so that cancellation and deadlines
// on ctx return promptly; an abandoned call finishes in the background and
// its result is discarded.
func (e *SimplexEngine) Solve(ctx context.Context, m *Model) (*production.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	tol := e.tolerance()
	sf, err := newStandardForm(m, tol)
	if err != nil {
		return nil, err
	}

	x := make([]float64, sf.cols)
	if sf.cols > 0 {
		x, err = sf.solve(ctx, tol)
		if err != nil {
			return nil, err
		}
	}

	return m.Solution(sf.values(m, x)), nil
}

type entry struct {
	col  int
	coef float64
}

// standardForm is min c·x subject to Ax = b, x >= 0, built from a Model by
// shifting lower bounds into b, turning finite upper bounds and
// inequalities into rows with slack columns, and resolving fixed or
// unconstrained variables up front.
type standardForm struct {
	c    []float64
	b    []float64
	rows [][]entry
	cols int

	// Per model variable: the standard form column, or -1 when the value
	// was resolved during conversion, and the lower bound or resolved value.
	col   []int
	shift []float64
}

func (sf *standardForm) addColumn(cost float64) int {
	sf.c = append(sf.c, cost)
	sf.cols++
	return sf.cols - 1
}

func (sf *standardForm) addRow(entries []entry, rhs float64) {
	if rhs < 0 {
		for i := range entries {
			entries[i].coef = -entries[i].coef
		}
		rhs = -rhs
	}
	sf.rows = append(sf.rows, entries)
	sf.b = append(sf.b, rhs)
}

func newStandardForm(m *Model, tol float64) (*standardForm, error) {
	n := len(m.Variables)
	appears := make([]bool, n)
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Coef != 0 {
				appears[t.Var] = true
			}
		}
	}

	sf := &standardForm{
		col:   make([]int, n),
		shift: make([]float64, n),
	}

	for j, v := range m.Variables {
		sf.col[j] = -1
		lo, up := v.Lower, v.Upper
		if math.IsNaN(lo) || math.IsNaN(up) || math.IsInf(lo, 0) || math.IsInf(up, -1) {
			return nil, fmt.Errorf("%w: variable %s has bounds [%v, %v]", ErrEngineFailure, v.Name, lo, up)
		}
		if up < lo-tol {
			return nil, fmt.Errorf("%w: variable %s has bounds [%v, %v]", ErrInfeasible, v.Name, lo, up)
		}

		cost := m.Objective[j]
		switch {
		case up-lo <= tol:
			sf.shift[j] = lo
		case !appears[j]:
			if cost >= 0 {
				sf.shift[j] = lo
				break
			}
			if math.IsInf(up, 1) {
				return nil, fmt.Errorf("%w: variable %s", ErrUnbounded, v.Name)
			}
			sf.shift[j] = up
		default:
			sf.shift[j] = lo
			sf.col[j] = sf.addColumn(cost)
		}
	}

	for _, c := range m.Constraints {
		rhs := c.RHS
		var entries []entry
		index := make(map[int]int)
		for _, t := range c.Terms {
			rhs -= t.Coef * sf.shift[t.Var]
			k := sf.col[t.Var]
			if k < 0 || t.Coef == 0 {
				continue
			}
			if i, ok := index[k]; ok {
				entries[i].coef += t.Coef
				continue
			}
			index[k] = len(entries)
			entries = append(entries, entry{col: k, coef: t.Coef})
		}
		entries = dropZeros(entries)

		if len(entries) == 0 {
			if !satisfied(c.Sense, rhs, tol) {
				return nil, fmt.Errorf("%w: row %s cannot be satisfied", ErrInfeasible, c.Name)
			}
			continue
		}

		switch c.Sense {
		case SenseLE:
			entries = append(entries, entry{col: sf.addColumn(0), coef: 1})
		case SenseGE:
			entries = append(entries, entry{col: sf.addColumn(0), coef: -1})
		}
		sf.addRow(entries, rhs)
	}

	for j, v := range m.Variables {
		k := sf.col[j]
		if k < 0 || math.IsInf(v.Upper, 1) {
			continue
		}
		sf.addRow([]entry{{col: k, coef: 1}, {col: sf.addColumn(0), coef: 1}}, v.Upper-v.Lower)
	}

	// Every row needs a column that appears in no other row so the matrix
	// has full row rank. Equality rows without one get an artificial column
	// that is pinned to zero by its own bound row.
	count := make([]int, sf.cols)
	for _, row := range sf.rows {
		for _, e := range row {
			count[e.col]++
		}
	}
	nRows := len(sf.rows)
	for i := 0; i < nRows; i++ {
		if hasSingleton(sf.rows[i], count) {
			continue
		}
		a := sf.addColumn(0)
		sf.rows[i] = append(sf.rows[i], entry{col: a, coef: 1})
		sf.addRow([]entry{{col: a, coef: 1}, {col: sf.addColumn(0), coef: 1}}, 0)
	}

	return sf, nil
}

func dropZeros(entries []entry) []entry {
	out := entries[:0]
	for _, e := range entries {
		if e.coef != 0 {
			out = append(out, e)
		}
	}
	return out
}

func satisfied(sense Sense, rhs, tol float64) bool {
	switch sense {
	case SenseLE:
		return rhs >= -tol
	case SenseGE:
		return rhs <= tol
	default:
		return math.Abs(rhs) <= tol
	}
}

func hasSingleton(row []entry, count []int) bool {
	for _, e := range row {
		if count[e.col] == 1 {
			return true
		}
	}
	return false
}

func (sf *standardForm) matrix() *mat.Dense {
	a := mat.NewDense(len(sf.rows), sf.cols, nil)
	for i, row := range sf.rows {
		for _, e := range row {
			a.Set(i, e.col, e.coef)
		}
	}
	return a
}

type simplexResult struct {
	x   []float64
	err error
}

func (sf *standardForm) solve(ctx context.Context, tol float64) ([]float64, error) {
	a := sf.matrix()
	done := make(chan simplexResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- simplexResult{err: fmt.Errorf("%w: simplex panic: %v", ErrEngineFailure, r)}
			}
		}()
		_, x, err := lp.Simplex(sf.c, a, sf.b, tol, nil)
		done <- simplexResult{x: x, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, mapSimplexError(res.err)
		}
		return res.x, nil
	}
}

func mapSimplexError(err error) error {
	switch {
	case errors.Is(err, ErrEngineFailure):
		return err
	case errors.Is(err, lp.ErrInfeasible):
		return ErrInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return ErrUnbounded
	default:
		return fmt.Errorf("%w: %v", ErrEngineFailure, err)
	}
}

// values maps standard form columns back to model variable values.
func (sf *standardForm) values(m *Model, x []float64) []float64 {
	out := make([]float64, len(m.Variables))
	for j, v := range m.Variables {
		val := sf.shift[j]
		if k := sf.col[j]; k >= 0 && x[k] > 0 {
			val += x[k]
		}
		if val > v.Upper {
			val = v.Upper
		}
		out[j] = val
	}
	return out
}
