package provider

import (
	"errors"
	"fmt"

	"github.com/roach88/dataprovider/internal/contract"
	"github.com/roach88/dataprovider/internal/route"
	"github.com/roach88/dataprovider/internal/store"
)

// classify converts an error from the builder or storage into the error
// surfaced to the caller, attaching the requested address.
func classify(addr route.Address, op string, err error) error {
	var ce *contract.Error
	if errors.As(err, &ce) {
		if ce.Address != "" {
			return err
		}
		out := *ce
		out.Address = addr.String()
		return &out
	}

	if store.IsConstraintViolation(err) {
		return contract.WrapError(contract.ErrCodeConstraintViolation, addr.String(), err,
			"%s violates a storage constraint", op)
	}

	return fmt.Errorf("%s %s: %w", op, addr, err)
}

func unsupported(addr route.Address, op string, kind route.Kind) error {
	return contract.NewError(contract.ErrCodeUnsupportedOperation, addr.String(),
		"%s is not supported on %s addresses", op, kind)
}

func unavailable(addr route.Address) error {
	return contract.NewError(contract.ErrCodeStoreUnavailable, addr.String(),
		"store is %s; delete the whole store to recover", StateResetPending)
}
