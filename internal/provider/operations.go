package provider

import (
	"context"
	"fmt"
	"strconv"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/predicate"
	"github.com/roach88/dataprovider/internal/record"
	"github.com/roach88/dataprovider/internal/route"
)

// QueryOptions are the caller-controlled parts of a read.
type QueryOptions struct {
	// Columns to project. Empty selects every column.
	Columns []string

	// Selection is a predicate fragment with '?' placeholders, ANDed after
	// the route scope. Args bind to its placeholders in order.
	Selection string
	Args      []string

	// SortOrder is "col [ASC|DESC], ...".
	SortOrder string

	// Distinct removes duplicate rows. The address distinct option also
	// enables it.
	Distinct bool
}

// Query reads the rows addressed by addr.
//
// The cursor's notification address is addr without options. When ctx
// carries a caller (WithCaller), interest in addr is registered for it.
func (p *Provider) Query(ctx context.Context, addr route.Address, opts QueryOptions) (*predicate.Cursor, error) {
	p.logger.Debug("query",
		"address", addr.String(),
		"columns", opts.Columns,
		"selection", opts.Selection,
		"args", opts.Args,
		"sort", opts.SortOrder)

	res, err := p.router.Resolve(addr)
	if err != nil {
		return nil, err
	}
	if res.Kind == route.WholeStore {
		return nil, unsupported(addr, "query", res.Kind)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateActive {
		return nil, unavailable(addr)
	}

	cur, err := p.scoped(res).
		Where(opts.Selection, stringArgs(opts.Args)...).
		Read(ctx, p.storage.Readable(), predicate.ReadOptions{
			Columns:             opts.Columns,
			Distinct:            opts.Distinct || addr.Distinct(),
			OrderBy:             opts.SortOrder,
			NotificationAddress: addr.WithoutQuery(),
			OnClose:             func() { p.cursors.Add(-1) },
		})
	if err != nil {
		return nil, classify(addr, "query", err)
	}
	p.cursors.Add(1)

	if caller, ok := CallerFrom(ctx); ok {
		p.gate.RegisterInterest(addr, caller)
	}
	return cur, nil
}

// Insert adds rec to the collection at addr and returns the new item's
// address: the image key for images, the storage row id for history.
//
// Only collection addresses accept inserts. A duplicate image key fails
// with CONSTRAINT_VIOLATION and leaves the store unchanged.
func (p *Provider) Insert(ctx context.Context, addr route.Address, rec record.Record) (route.Address, error) {
	p.logger.Debug("insert", "address", addr.String(), "values", rec)

	res, err := p.router.Resolve(addr)
	if err != nil {
		return route.Address{}, err
	}

	switch res.Kind {
	case route.ImagesCollection, route.HistoryCollection:
	case route.ImagesItem, route.HistoryItem, route.WholeStore:
		return route.Address{}, unsupported(addr, "insert", res.Kind)
	default:
		return route.Address{}, fmt.Errorf("insert %s: unhandled route kind %s", addr, res.Kind)
	}
	if err := checkImageKey(addr, res, rec); err != nil {
		return route.Address{}, err
	}

	item, err := p.insert(ctx, addr, res, rec)
	if err != nil {
		return route.Address{}, err
	}

	p.changed(addr, item)
	return item, nil
}

func (p *Provider) insert(ctx context.Context, addr route.Address, res route.Resolution, rec record.Record) (route.Address, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateActive {
		return route.Address{}, unavailable(addr)
	}

	rowID, err := predicate.Insert(ctx, p.storage.Writable(), res.Table, rec)
	if err != nil {
		return route.Address{}, classify(addr, "insert", err)
	}

	collection := addr.WithoutQuery()
	if res.Kind == route.ImagesCollection {
		// NOT NULL on image_id means a successful insert always carried a key.
		key, ok := rec.Text(contract.ImageIDColumn)
		if !ok {
			return route.Address{}, fmt.Errorf("insert %s: row %d has no %s", addr, rowID, contract.ImageIDColumn)
		}
		return collection.Child(key), nil
	}
	return collection.Child(strconv.FormatInt(rowID, 10)), nil
}

// Update sets values on the rows addressed by addr and narrowed by
// selection, returning the number of rows changed. A change for addr is
// published even when no row matched.
func (p *Provider) Update(ctx context.Context, addr route.Address, values record.Record, selection string, args []string) (int64, error) {
	p.logger.Debug("update",
		"address", addr.String(),
		"values", values,
		"selection", selection,
		"args", args)

	res, err := p.router.Resolve(addr)
	if err != nil {
		return 0, err
	}
	if res.Kind == route.WholeStore {
		return 0, unsupported(addr, "update", res.Kind)
	}
	if len(values) == 0 {
		return 0, contract.NewError(contract.ErrCodeInvalidValues, addr.String(), "update requires at least one column")
	}
	if err := checkImageKey(addr, res, values); err != nil {
		return 0, err
	}

	n, err := p.write(addr, func() (int64, error) {
		return p.scoped(res).
			Where(selection, stringArgs(args)...).
			Update(ctx, p.storage.Writable(), values)
	})
	if err != nil {
		return 0, classify(addr, "update", err)
	}

	p.changed(addr, addr)
	return n, nil
}

// Delete removes the rows addressed by addr and narrowed by selection,
// returning the number removed. A change for addr is published even when
// no row matched.
//
// Deleting the whole-store address resets storage instead, ignores
// selection, and returns 1.
func (p *Provider) Delete(ctx context.Context, addr route.Address, selection string, args []string) (int64, error) {
	p.logger.Debug("delete",
		"address", addr.String(),
		"selection", selection,
		"args", args)

	res, err := p.router.Resolve(addr)
	if err != nil {
		return 0, err
	}
	if res.Kind == route.WholeStore {
		return p.reset(ctx, addr)
	}

	n, err := p.write(addr, func() (int64, error) {
		return p.scoped(res).
			Where(selection, stringArgs(args)...).
			Delete(ctx, p.storage.Writable())
	})
	if err != nil {
		return 0, classify(addr, "delete", err)
	}

	p.changed(addr, addr)
	return n, nil
}

// Type returns the content type of a collection or item address.
func (p *Provider) Type(addr route.Address) (string, error) {
	res, err := p.router.Resolve(addr)
	if err != nil {
		return "", err
	}

	switch res.Kind {
	case route.ImagesCollection:
		return contract.ImagesContentType, nil
	case route.ImagesItem:
		return contract.ImagesItemContentType, nil
	case route.HistoryCollection:
		return contract.HistoryContentType, nil
	case route.HistoryItem:
		return contract.HistoryItemContentType, nil
	case route.WholeStore:
		return "", contract.NewError(contract.ErrCodeUnknownResource, addr.String(),
			"the whole-store address has no content type")
	default:
		return "", contract.NewError(contract.ErrCodeUnknownResource, addr.String(),
			"unhandled route kind %s", res.Kind)
	}
}

// reset drops and recreates the whole store. It is refused while query
// cursors are open, since those would keep reading the dropped database.
func (p *Provider) reset(ctx context.Context, addr route.Address) (int64, error) {
	p.mu.Lock()
	if open := p.cursors.Load(); open > 0 {
		p.mu.Unlock()
		return 0, contract.NewError(contract.ErrCodeResetFailed, addr.String(),
			"%d query cursor(s) still open; close them before resetting", open)
	}
	p.state = StateResetPending
	err := p.storage.Reset(ctx)
	if err == nil {
		p.state = StateActive
	}
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("whole-store reset failed", "address", addr.String(), "error", err)
		return 0, contract.WrapError(contract.ErrCodeResetFailed, addr.String(), err, "whole-store reset failed")
	}

	p.logger.Info("whole-store reset", "address", addr.String())
	p.changed(addr, addr)
	return 1, nil
}

// checkImageKey rejects an empty image key. A row stored under one could
// never be addressed as an item, since item addresses need a non-empty key.
// A missing or null key is left to the NOT NULL constraint.
func checkImageKey(addr route.Address, res route.Resolution, rec record.Record) error {
	if res.Table != contract.TableImages {
		return nil
	}
	if key, ok := rec.Text(contract.ImageIDColumn); ok && key == "" {
		return contract.NewError(contract.ErrCodeInvalidValues, addr.String(),
			"%s must not be empty", contract.ImageIDColumn)
	}
	return nil
}

// write runs fn under the read side of the lifecycle lock.
func (p *Provider) write(addr route.Address, fn func() (int64, error)) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != StateActive {
		return 0, unavailable(addr)
	}
	return fn()
}

// scoped returns a builder on the route's table, seeded with the item key
// scope for item routes. The scope always precedes caller fragments.
func (p *Provider) scoped(res route.Resolution) *predicate.Builder {
	b := predicate.New().Table(res.Table)
	if res.Kind.IsItem() {
		b.Where(res.KeyColumn+" = ?", keyValue(res))
	}
	return b
}

// keyValue binds the item key with the column's storage type so the
// comparison can use the column's index.
func keyValue(res route.Resolution) record.Value {
	if res.KeyColumn == contract.RowIDColumn {
		if n, err := strconv.ParseInt(res.Key, 10, 64); err == nil {
			return record.Int(n)
		}
	}
	return record.String(res.Key)
}

// changed publishes a change for target unless requested carries the
// sync-agent marker.
func (p *Provider) changed(requested, target route.Address) {
	c := p.gate.Changed(requested, target)
	if c.Suppressed {
		p.logger.Debug("notification suppressed", "address", c.Address.String())
		return
	}
	p.logger.Debug("notified", "address", c.Address.String(), "seq", c.Seq, "id", c.ID)
}

func stringArgs(args []string) []record.Value {
	if len(args) == 0 {
		return nil
	}
	out := make([]record.Value, len(args))
	for i, a := range args {
		out[i] = record.String(a)
	}
	return out
}
