package repositories

import (
	stderrors "errors"
	"fmt"

	"chatwire/errors"
)

// domainErrors pass through wrapStore untouched so callers can match
// them with errors.Is; everything else is an infrastructure failure.
var domainErrors = []error{
	errors.ErrNotFound,
	errors.ErrUnauthorized,
	errors.ErrAlreadyFriends,
	errors.ErrDuplicateRequest,
	errors.ErrNoSuchRequest,
	errors.ErrAlreadyBlocked,
	errors.ErrBlocked,
}

func wrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domainErr := range domainErrors {
		if stderrors.Is(err, domainErr) {
			return err
		}
	}
	if errors.IsStore(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", errors.ErrStore, op, err)
}
