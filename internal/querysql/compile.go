package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/queryir"
	"github.com/roach88/dataprovider/internal/record"
)

// Compiler compiles statement IR to parameterized SQL for SQLite.
//
// CRITICAL: every SELECT ends in an ORDER BY with a deterministic tiebreaker.
// CRITICAL: all values are parameterized, never interpolated.
type Compiler struct {
	// TiebreakColumn is the unique column appended to every non-distinct
	// ORDER BY. Defaults to the row id.
	TiebreakColumn string
}

// NewCompiler creates a Compiler that breaks ties on the row id.
func NewCompiler() *Compiler {
	return &Compiler{TiebreakColumn: contract.RowIDColumn}
}

// Compile validates stmt and converts it to parameterized SQL.
// Returns (sql, params, error).
func (c *Compiler) Compile(stmt queryir.Statement) (string, []any, error) {
	if err := queryir.Validate(stmt); err != nil {
		return "", nil, err
	}

	switch s := stmt.(type) {
	case queryir.Select:
		return c.compileSelect(s)
	case *queryir.Select:
		return c.compileSelect(*s)
	case queryir.Insert:
		return c.compileInsert(s)
	case *queryir.Insert:
		return c.compileInsert(*s)
	case queryir.Update:
		return c.compileUpdate(s)
	case *queryir.Update:
		return c.compileUpdate(*s)
	case queryir.Delete:
		return c.compileDelete(s)
	case *queryir.Delete:
		return c.compileDelete(*s)
	default:
		return "", nil, fmt.Errorf("unsupported statement type: %T", stmt)
	}
}

// compileSelect compiles a Select.
// MANDATORY: includes ORDER BY.
func (c *Compiler) compileSelect(s queryir.Select) (string, []any, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(s.Table)

	where, params, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}
	b.WriteString(where)

	b.WriteString(" ORDER BY ")
	b.WriteString(c.orderClause(s))

	return b.String(), params, nil
}

// orderClause returns the ORDER BY terms for s.
//
// Non-distinct reads order by the caller terms (default: the tiebreak
// column) and then by the tiebreak column. Distinct reads cannot order by a
// column outside the projection without changing which rows are distinct, so
// their tiebreaker is the projection itself.
func (c *Compiler) orderClause(s queryir.Select) string {
	tiebreak := c.tiebreak()
	terms := make([]string, 0, len(s.OrderBy)+len(s.Columns)+1)
	used := make(map[string]bool)

	add := func(column string, desc bool) {
		if used[column] {
			return
		}
		used[column] = true
		if desc {
			terms = append(terms, column+" DESC")
		} else {
			terms = append(terms, column+" ASC")
		}
	}

	for _, o := range s.OrderBy {
		add(o.Column, o.Descending)
	}

	switch {
	case !s.Distinct, len(s.Columns) == 0:
		add(tiebreak, false)
	default:
		for _, col := range s.Columns {
			add(col, false)
		}
	}

	return strings.Join(terms, ", ")
}

func (c *Compiler) tiebreak() string {
	if c.TiebreakColumn == "" {
		return contract.RowIDColumn
	}
	return c.TiebreakColumn
}

// compileInsert compiles an Insert. Columns are emitted in sorted order so
// the SQL text is deterministic.
func (c *Compiler) compileInsert(s queryir.Insert) (string, []any, error) {
	if len(s.Values) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", s.Table), nil, nil
	}

	values := sortedAssignments(s.Values)
	cols := make([]string, len(values))
	marks := make([]string, len(values))
	params := make([]any, len(values))
	for i, a := range values {
		p, err := record.ToParam(a.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", a.Column, err)
		}
		cols[i] = a.Column
		marks[i] = "?"
		params[i] = p
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.Table, strings.Join(cols, ", "), strings.Join(marks, ", "))
	return sql, params, nil
}

// compileUpdate compiles an Update. SET parameters precede WHERE parameters.
func (c *Compiler) compileUpdate(s queryir.Update) (string, []any, error) {
	set := sortedAssignments(s.Set)
	parts := make([]string, len(set))
	params := make([]any, 0, len(set))
	for i, a := range set {
		p, err := record.ToParam(a.Value)
		if err != nil {
			return "", nil, fmt.Errorf("column %s: %w", a.Column, err)
		}
		parts[i] = a.Column + " = ?"
		params = append(params, p)
	}

	where, whereParams, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}
	params = append(params, whereParams...)

	sql := fmt.Sprintf("UPDATE %s SET %s%s", s.Table, strings.Join(parts, ", "), where)
	return sql, params, nil
}

func (c *Compiler) compileDelete(s queryir.Delete) (string, []any, error) {
	where, params, err := c.compileWhere(s.Filter)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + s.Table + where, params, nil
}

// compileWhere returns " WHERE ..." or "" when p contributes no condition.
func (c *Compiler) compileWhere(p queryir.Predicate) (string, []any, error) {
	sql, params, err := c.compilePredicate(p)
	if err != nil {
		return "", nil, fmt.Errorf("compile filter: %w", err)
	}
	if sql == "" {
		return "", nil, nil
	}
	return " WHERE " + sql, params, nil
}

// compilePredicate compiles p to a WHERE fragment. An empty result means
// "always true".
// CRITICAL: fragments are wrapped in parentheses so OR inside a caller
// fragment cannot widen an enclosing conjunction.
func (c *Compiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	if p == nil {
		return "", nil, nil
	}

	switch pred := p.(type) {
	case queryir.Fragment:
		return compileFragment(pred)
	case *queryir.Fragment:
		return compileFragment(*pred)
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileFragment(f queryir.Fragment) (string, []any, error) {
	sql := strings.TrimSpace(f.SQL)
	if sql == "" {
		return "", nil, nil
	}
	params := make([]any, len(f.Args))
	for i, a := range f.Args {
		p, err := record.ToParam(a)
		if err != nil {
			return "", nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		params[i] = p
	}
	return "(" + sql + ")", params, nil
}

func (c *Compiler) compileAnd(and queryir.And) (string, []any, error) {
	var parts []string
	var params []any

	for _, pred := range and.Predicates {
		sql, ps, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, sql)
		params = append(params, ps...)
	}

	return strings.Join(parts, " AND "), params, nil
}

func sortedAssignments(as []queryir.Assignment) []queryir.Assignment {
	out := slices.Clone(as)
	slices.SortFunc(out, func(a, b queryir.Assignment) int {
		return strings.Compare(a.Column, b.Column)
	})
	return out
}
