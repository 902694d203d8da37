package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrDuplicate signals a unique-constraint violation. Services treat it as an
// expected, recoverable outcome (short-key collision, login already taken)
// rather than a storage fault.
var ErrDuplicate = errors.New("unique constraint violation")

const pqUniqueViolation = "23505"

func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return fmt.Errorf("%w on %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
