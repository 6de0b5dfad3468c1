package predicate

import (
	"database/sql"
	"fmt"

	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
)

// Cursor is a lazy, forward-only sequence of rows.
//
// Booleans are stored as integers, so a Bool written through Insert or
// Update reads back as Int 0 or 1.
type Cursor struct {
	rows    *sql.Rows
	columns []string
	address route.Address

	current record.Record
	err     error
	closed  bool
	onClose func()
}

func newCursor(rows *sql.Rows, address route.Address, onClose func()) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &Cursor{rows: rows, columns: cols, address: address, onClose: onClose}, nil
}

// Columns returns the result column names in projection order.
func (c *Cursor) Columns() []string {
	return c.columns
}

// NotificationAddress is the address whose changes invalidate this result.
func (c *Cursor) NotificationAddress() route.Address {
	return c.address
}

// Next advances to the next row. It returns false at the end of the result
// or on error; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.closed || c.err != nil {
		return false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return false
	}

	raw := make([]any, len(c.columns))
	ptrs := make([]any, len(c.columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		c.err = fmt.Errorf("scan row: %w", err)
		c.Close()
		return false
	}

	rec := make(record.Record, len(c.columns))
	for i, col := range c.columns {
		v, err := record.FromSQL(raw[i])
		if err != nil {
			c.err = fmt.Errorf("column %s: %w", col, err)
			c.Close()
			return false
		}
		rec[col] = v
	}
	c.current = rec
	return true
}

// Record returns the current row. Valid only after Next returned true.
func (c *Cursor) Record() record.Record {
	return c.current
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the underlying rows. Safe to call more than once.
func (c *Cursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.rows.Close()
	if c.onClose != nil {
		c.onClose()
	}
	return err
}

// All drains the cursor and closes it.
func (c *Cursor) All() ([]record.Record, error) {
	defer c.Close()

	var out []record.Record
	for c.Next() {
		out = append(out, c.current)
	}
	if c.err != nil {
		return nil, c.err
	}
	return out, nil
}
