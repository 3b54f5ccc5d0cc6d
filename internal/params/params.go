// Package params implements parametrization specs and their expansion into
// concrete argument bindings.
//
// Two spec variants exist: named value lists, which expand to the Cartesian
// product across all names in declaration order, and tuple rows, which map
// one-to-one onto cases in declared order. Expansion order is fully
// deterministic: for named lists the last-declared name varies fastest, so
// {a: [1,2], b: [5,8,9]} emits a=1,b=5; a=1,b=8; a=1,b=9; a=2,b=5; …
package params

import "fmt"

// Kind discriminates the two spec variants.
type Kind int

const (
	// KindNamedLists expands to the Cartesian product over named value lists.
	KindNamedLists Kind = iota
	// KindTupleRows emits each declared row as one case, verbatim.
	KindTupleRows
)

// ValueList is one named sequence of values for a named-lists spec.
type ValueList struct {
	Name   string
	Values []any
}

// Spec is a validated parametrization specification.
type Spec struct {
	Kind   Kind
	Names  []string
	Values map[string][]any // KindNamedLists only
	Rows   [][]any          // KindTupleRows only
}

// ParametrizeError indicates a malformed spec. It is detected at
// construction time and kills only the owning function's case group.
type ParametrizeError struct {
	Reason string
}

func (e *ParametrizeError) Error() string {
	return "invalid parametrization: " + e.Reason
}

// NamedLists builds a Cartesian-product spec from value lists in declaration
// order.
func NamedLists(lists ...ValueList) (*Spec, error) {
	if len(lists) == 0 {
		return nil, &ParametrizeError{Reason: "no value lists declared"}
	}

	names := make([]string, 0, len(lists))
	values := make(map[string][]any, len(lists))

	for _, l := range lists {
		if l.Name == "" {
			return nil, &ParametrizeError{Reason: "value list with empty name"}
		}
		if _, dup := values[l.Name]; dup {
			return nil, &ParametrizeError{Reason: fmt.Sprintf("duplicate name %q", l.Name)}
		}
		if len(l.Values) == 0 {
			return nil, &ParametrizeError{Reason: fmt.Sprintf("name %q has no values", l.Name)}
		}
		names = append(names, l.Name)
		values[l.Name] = append([]any(nil), l.Values...)
	}

	return &Spec{Kind: KindNamedLists, Names: names, Values: values}, nil
}

// TupleRows builds a spec that emits each row as one case. Every row's arity
// must equal len(names); a violation is a construction-time error.
func TupleRows(names []string, rows [][]any) (*Spec, error) {
	if len(names) == 0 {
		return nil, &ParametrizeError{Reason: "no names declared"}
	}
	if len(rows) == 0 {
		return nil, &ParametrizeError{Reason: "no rows declared"}
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if n == "" {
			return nil, &ParametrizeError{Reason: "empty name"}
		}
		if seen[n] {
			return nil, &ParametrizeError{Reason: fmt.Sprintf("duplicate name %q", n)}
		}
		seen[n] = true
	}

	for i, row := range rows {
		if len(row) != len(names) {
			return nil, &ParametrizeError{
				Reason: fmt.Sprintf("row %d has %d values, want %d", i, len(row), len(names)),
			}
		}
	}

	spec := &Spec{
		Kind:  KindTupleRows,
		Names: append([]string(nil), names...),
		Rows:  make([][]any, len(rows)),
	}
	for i, row := range rows {
		spec.Rows[i] = append([]any(nil), row...)
	}

	return spec, nil
}

// Binding is one concrete argument assignment. Names preserves the declared
// order for stable case-label rendering; Values is the name→value mapping
// handed to the benchmark function.
type Binding struct {
	Names  []string
	Values map[string]any
}

// Expand turns a spec into its ordered sequence of bindings.
//
// Named lists expand lexicographically over the declared name sequence with
// the rightmost name varying fastest; tuple rows map to bindings in row
// order. Expand revalidates the spec so a hand-built Spec cannot bypass the
// construction-time invariants.
func Expand(spec *Spec) ([]Binding, error) {
	if spec == nil {
		return nil, &ParametrizeError{Reason: "nil spec"}
	}

	switch spec.Kind {
	case KindNamedLists:
		return expandNamedLists(spec)
	case KindTupleRows:
		return expandTupleRows(spec)
	default:
		return nil, &ParametrizeError{Reason: fmt.Sprintf("unknown spec kind %d", spec.Kind)}
	}
}

func expandNamedLists(spec *Spec) ([]Binding, error) {
	total := 1
	for _, name := range spec.Names {
		vals, ok := spec.Values[name]
		if !ok {
			return nil, &ParametrizeError{Reason: fmt.Sprintf("no values declared for name %q", name)}
		}
		if len(vals) == 0 {
			return nil, &ParametrizeError{Reason: fmt.Sprintf("name %q has no values", name)}
		}
		total *= len(vals)
	}

	bindings := make([]Binding, 0, total)
	indexes := make([]int, len(spec.Names))

	for {
		b := Binding{
			Names:  spec.Names,
			Values: make(map[string]any, len(spec.Names)),
		}
		for i, name := range spec.Names {
			b.Values[name] = spec.Values[name][indexes[i]]
		}
		bindings = append(bindings, b)

		// Odometer increment: the last-declared name varies fastest.
		pos := len(indexes) - 1
		for pos >= 0 {
			indexes[pos]++
			if indexes[pos] < len(spec.Values[spec.Names[pos]]) {
				break
			}
			indexes[pos] = 0
			pos--
		}
		if pos < 0 {
			return bindings, nil
		}
	}
}

func expandTupleRows(spec *Spec) ([]Binding, error) {
	bindings := make([]Binding, 0, len(spec.Rows))

	for i, row := range spec.Rows {
		if len(row) != len(spec.Names) {
			return nil, &ParametrizeError{
				Reason: fmt.Sprintf("row %d has %d values, want %d", i, len(row), len(spec.Names)),
			}
		}
		b := Binding{
			Names:  spec.Names,
			Values: make(map[string]any, len(spec.Names)),
		}
		for j, name := range spec.Names {
			b.Values[name] = row[j]
		}
		bindings = append(bindings, b)
	}

	return bindings, nil
}
