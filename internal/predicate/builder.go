package predicate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/queryir"
	"github.com/roach88/dataprovider/internal/querysql"
	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
)

// Handle is the storage connection a terminal operation runs on.
// *sql.DB and *sql.Tx satisfy it.
type Handle interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ErrConsumed is returned by a terminal called on an already-finished Builder.
var ErrConsumed = errors.New("predicate: builder already consumed")

// ReadOptions shapes a Read.
type ReadOptions struct {
	// Columns to project. Empty selects every column.
	Columns []string

	// Distinct removes duplicate rows.
	Distinct bool

	// OrderBy is a caller sort order, "col [ASC|DESC], ...".
	OrderBy string

	// NotificationAddress is attached to the returned Cursor.
	NotificationAddress route.Address

	// OnClose, if set, runs once when the returned Cursor is closed.
	OnClose func()
}

// Builder accumulates a scoped operation. The zero value is not usable;
// create one with New.
type Builder struct {
	compiler *querysql.Compiler
	table    string
	preds    []queryir.Predicate
	err      error
	consumed bool
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{compiler: querysql.NewCompiler()}
}

// Table sets the target table.
func (b *Builder) Table(name string) *Builder {
	b.table = name
	return b
}

// Where appends a fragment. A blank fragment with no args is ignored.
// The first invalid fragment is recorded and returned by the terminal.
func (b *Builder) Where(fragment string, args ...record.Value) *Builder {
	if b.err != nil {
		return b
	}

	f := queryir.Fragment{SQL: fragment, Args: args}
	if err := queryir.ValidateFragment(f); err != nil {
		b.err = err
		return b
	}
	if strings.TrimSpace(fragment) == "" {
		return b
	}

	b.preds = append(b.preds, f)
	return b
}

// Err returns the first error recorded by Where.
func (b *Builder) Err() error {
	return b.err
}

// Len returns the number of accumulated fragments.
func (b *Builder) Len() int {
	return len(b.preds)
}

// Read runs a SELECT and returns a lazy cursor over the matching rows.
// The caller must Close the cursor (All closes it).
func (b *Builder) Read(ctx context.Context, h Handle, opts ReadOptions) (*Cursor, error) {
	if err := b.begin(); err != nil {
		return nil, err
	}

	order, err := queryir.ParseOrderBy(opts.OrderBy)
	if err != nil {
		return nil, err
	}

	query, params, err := b.compiler.Compile(queryir.Select{
		Table:    b.table,
		Columns:  opts.Columns,
		Distinct: opts.Distinct,
		Filter:   b.filter(),
		OrderBy:  order,
	})
	if err != nil {
		return nil, err
	}

	rows, err := h.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", b.table, err)
	}

	return newCursor(rows, opts.NotificationAddress, opts.OnClose)
}

// Update sets values on every matching row and returns the number of rows
// changed. Distinct and ordering do not apply.
func (b *Builder) Update(ctx context.Context, h Handle, values record.Record) (int64, error) {
	if err := b.begin(); err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, contract.NewError(contract.ErrCodeInvalidValues, "", "update requires at least one column")
	}

	query, params, err := b.compiler.Compile(queryir.Update{
		Table:  b.table,
		Set:    assignments(values),
		Filter: b.filter(),
	})
	if err != nil {
		return 0, err
	}

	return exec(ctx, h, "update "+b.table, query, params)
}

// Delete removes every matching row and returns the number removed.
func (b *Builder) Delete(ctx context.Context, h Handle) (int64, error) {
	if err := b.begin(); err != nil {
		return 0, err
	}

	query, params, err := b.compiler.Compile(queryir.Delete{
		Table:  b.table,
		Filter: b.filter(),
	})
	if err != nil {
		return 0, err
	}

	return exec(ctx, h, "delete from "+b.table, query, params)
}

// begin marks the builder consumed and reports any recorded error.
func (b *Builder) begin() error {
	if b.consumed {
		return ErrConsumed
	}
	b.consumed = true
	if b.err != nil {
		return b.err
	}
	if b.table == "" {
		return errors.New("predicate: no table")
	}
	return nil
}

func (b *Builder) filter() queryir.Predicate {
	if len(b.preds) == 0 {
		return nil
	}
	return queryir.And{Predicates: b.preds}
}

// Insert adds rec to table and returns the storage row id.
// An empty record inserts a row of column defaults.
func Insert(ctx context.Context, h Handle, table string, rec record.Record) (int64, error) {
	query, params, err := querysql.NewCompiler().Compile(queryir.Insert{
		Table:  table,
		Values: assignments(rec),
	})
	if err != nil {
		return 0, err
	}

	res, err := h.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert into %s: row id: %w", table, err)
	}
	return id, nil
}

func exec(ctx context.Context, h Handle, op, query string, params []any) (int64, error) {
	res, err := h.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

// assignments converts rec to assignments in canonical column order.
func assignments(rec record.Record) []queryir.Assignment {
	keys := rec.SortedKeys()
	out := make([]queryir.Assignment, len(keys))
	for i, k := range keys {
		out[i] = queryir.Assignment{Column: k, Value: rec[k]}
	}
	return out
}
