package sqlite

import (
	"fmt"
	"strings"

	"github.com/jacentio/arbor/store"
)

// compileWhere renders a predicate expression as a SQL condition with
// bound parameters. Literal operands always become placeholders; column
// names come from the fixed Column set, so no caller-supplied value is
// ever spliced into the query text.
func compileWhere(e store.Expr) (string, []any, error) {
	if e == nil {
		return "1", nil, nil
	}
	var args []any
	sql, err := compileExpr(e, &args)
	if err != nil {
		return "", nil, err
	}
	return sql, args, nil
}

func compileExpr(e store.Expr, args *[]any) (string, error) {
	switch x := e.(type) {
	case store.And:
		if len(x) == 0 {
			return "1", nil
		}
		parts := make([]string, 0, len(x))
		for _, sub := range x {
			s, err := compileExpr(sub, args)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return "(" + strings.Join(parts, " AND ") + ")", nil

	case store.Not:
		inner, err := compileExpr(x.E, args)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil

	case store.Cmp:
		l, err := compileTerm(x.L, args)
		if err != nil {
			return "", err
		}
		r, err := compileTerm(x.R, args)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s %s %s)", l, x.Op, r), nil

	default:
		return "", fmt.Errorf("arbor: cannot compile expression %T", e)
	}
}

func compileTerm(t store.Term, args *[]any) (string, error) {
	switch x := t.(type) {
	case store.ColTerm:
		return x.C.String(), nil
	case store.LitTerm:
		*args = append(*args, x.V)
		return "?", nil
	case store.SubTerm:
		return compileBinary(x.A, x.B, "-", args)
	case store.MulTerm:
		return compileBinary(x.A, x.B, "*", args)
	case store.QuotTerm:
		// SQLite integer division truncates, matching Term.Value.
		return compileBinary(x.A, x.B, "/", args)
	default:
		return "", fmt.Errorf("arbor: cannot compile term %T", t)
	}
}

func compileBinary(a, b store.Term, op string, args *[]any) (string, error) {
	l, err := compileTerm(a, args)
	if err != nil {
		return "", err
	}
	r, err := compileTerm(b, args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s %s %s)", l, op, r), nil
}

func orderClause(o store.OrderBy) string {
	switch o {
	case store.OrderPosition:
		return "a11, a21"
	case store.OrderPositionDesc:
		return "a11 DESC, a21 DESC"
	case store.OrderDepth:
		return "a21, a11"
	case store.OrderDepthDesc:
		return "a21 DESC, a11 DESC"
	}
	return ""
}
