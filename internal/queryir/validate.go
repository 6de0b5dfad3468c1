package queryir

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/dataprovider/internal/contract"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s is a plain SQL identifier.
//
// Table names, projected columns, assignment columns and ORDER BY keys must
// be plain identifiers; they are the only caller text that is placed into
// SQL outside a fragment.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Validate checks that stmt is safe to compile.
//
// Returns a MALFORMED_PREDICATE *contract.Error describing the first
// problem found. Validate is a pure function with no side effects.
func Validate(stmt Statement) error {
	if stmt == nil {
		return malformed("nil statement")
	}

	switch s := stmt.(type) {
	case Select:
		return validateSelect(s)
	case *Select:
		return validateSelect(*s)
	case Insert:
		return validateInsert(s)
	case *Insert:
		return validateInsert(*s)
	case Update:
		return validateUpdate(s)
	case *Update:
		return validateUpdate(*s)
	case Delete:
		return validateDelete(s)
	case *Delete:
		return validateDelete(*s)
	default:
		return malformed("unsupported statement type %T", stmt)
	}
}

func validateSelect(s Select) error {
	if err := validateTable(s.Table); err != nil {
		return err
	}
	for _, c := range s.Columns {
		if !IsIdentifier(c) {
			return malformed("invalid column %q", c)
		}
	}
	for _, o := range s.OrderBy {
		if !IsIdentifier(o.Column) {
			return malformed("invalid sort column %q", o.Column)
		}
	}
	return ValidatePredicate(s.Filter)
}

func validateInsert(s Insert) error {
	if err := validateTable(s.Table); err != nil {
		return err
	}
	return validateAssignments(s.Values)
}

func validateUpdate(s Update) error {
	if err := validateTable(s.Table); err != nil {
		return err
	}
	if len(s.Set) == 0 {
		return contract.NewError(contract.ErrCodeInvalidValues, "", "update requires at least one column")
	}
	if err := validateAssignments(s.Set); err != nil {
		return err
	}
	return ValidatePredicate(s.Filter)
}

func validateDelete(s Delete) error {
	if err := validateTable(s.Table); err != nil {
		return err
	}
	return ValidatePredicate(s.Filter)
}

func validateTable(table string) error {
	if !IsIdentifier(table) {
		return malformed("invalid table %q", table)
	}
	return nil
}

func validateAssignments(as []Assignment) error {
	seen := make(map[string]bool, len(as))
	for _, a := range as {
		if !IsIdentifier(a.Column) {
			return contract.NewError(contract.ErrCodeInvalidValues, "", "invalid column %q", a.Column)
		}
		if seen[a.Column] {
			return contract.NewError(contract.ErrCodeInvalidValues, "", "duplicate column %q", a.Column)
		}
		if a.Value == nil {
			return contract.NewError(contract.ErrCodeInvalidValues, "", "column %q has no value", a.Column)
		}
		seen[a.Column] = true
	}
	return nil
}

// ValidatePredicate checks every fragment reachable from p. nil is valid.
func ValidatePredicate(p Predicate) error {
	if p == nil {
		return nil
	}

	switch pred := p.(type) {
	case Fragment:
		return ValidateFragment(pred)
	case *Fragment:
		return ValidateFragment(*pred)
	case And:
		return validateAnd(pred)
	case *And:
		return validateAnd(*pred)
	default:
		return malformed("unsupported predicate type %T", p)
	}
}

func validateAnd(and And) error {
	for _, sub := range and.Predicates {
		if err := ValidatePredicate(sub); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFragment checks that f is a self-contained boolean expression.
//
// Rules, applied outside quoted strings and quoted identifiers:
//  1. the number of '?' placeholders equals len(f.Args)
//  2. parentheses balance and never close below depth zero
//  3. no ';' statement separator and no "--" or "/*" comment
//  4. no numbered (?1) or named (:x, @x, $x) parameters
//
// Quoted strings must terminate. A blank fragment is valid only without args.
func ValidateFragment(f Fragment) error {
	if strings.TrimSpace(f.SQL) == "" {
		if len(f.Args) > 0 {
			return malformed("%d argument(s) supplied for an empty predicate", len(f.Args))
		}
		return nil
	}

	for i, a := range f.Args {
		if a == nil {
			return malformed("argument %d has no value", i+1)
		}
	}

	placeholders, err := scanFragment(f.SQL)
	if err != nil {
		return err
	}
	if placeholders != len(f.Args) {
		return malformed("predicate %q has %d placeholder(s) but %d argument(s)",
			f.SQL, placeholders, len(f.Args))
	}
	return nil
}

// CountPlaceholders returns the number of '?' placeholders in sql that are
// outside quoted strings. It does not validate sql.
func CountPlaceholders(sql string) int {
	n := 0
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '?':
			n++
		}
	}
	return n
}

// scanFragment walks sql once, returning the placeholder count or the first
// lexical violation.
func scanFragment(sql string) (int, error) {
	var (
		quote        byte
		depth        int
		placeholders int
	)

	for i := 0; i < len(sql); i++ {
		c := sql[i]

		if quote != 0 {
			// A doubled quote ('') closes and immediately reopens, which
			// this toggle handles without special casing.
			if c == quote {
				quote = 0
			}
			continue
		}

		var next byte
		if i+1 < len(sql) {
			next = sql[i+1]
		}

		switch c {
		case '\'', '"', '`':
			quote = c
		case '[':
			// SQLite bracket-quoted identifier.
			quote = ']'
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return 0, malformed("predicate %q closes a parenthesis it did not open", sql)
			}
		case ';':
			return 0, malformed("predicate %q contains a statement separator", sql)
		case '-':
			if next == '-' {
				return 0, malformed("predicate %q contains a comment", sql)
			}
		case '/':
			if next == '*' {
				return 0, malformed("predicate %q contains a comment", sql)
			}
		case '?':
			if next >= '0' && next <= '9' {
				return 0, malformed("predicate %q uses numbered parameters; use plain '?'", sql)
			}
			placeholders++
		case ':', '@', '$':
			if isIdentStart(next) {
				return 0, malformed("predicate %q uses named parameters; use plain '?'", sql)
			}
		}
	}

	if quote != 0 {
		return 0, malformed("predicate %q has an unterminated quoted string", sql)
	}
	if depth != 0 {
		return 0, malformed("predicate %q has unbalanced parentheses", sql)
	}
	return placeholders, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// ParseOrderBy parses a caller sort order of the form
// "col [ASC|DESC][, col [ASC|DESC]]...". A blank string yields no terms.
func ParseOrderBy(s string) ([]OrderTerm, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var terms []OrderTerm
	for _, part := range strings.Split(s, ",") {
		fields := strings.Fields(part)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, malformed("invalid sort term %q", strings.TrimSpace(part))
		}
		term := OrderTerm{Column: fields[0]}
		if !IsIdentifier(term.Column) {
			return nil, malformed("invalid sort column %q", term.Column)
		}
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "ASC":
			case "DESC":
				term.Descending = true
			default:
				return nil, malformed("invalid sort direction %q", fields[1])
			}
		}
		terms = append(terms, term)
	}
	return terms, nil
}

func malformed(format string, args ...any) error {
	return contract.NewError(contract.ErrCodeMalformedPredicate, "", "%s", fmt.Sprintf(format, args...))
}
