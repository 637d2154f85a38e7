// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrConflict is returned when a delete or update cannot be performed
// because of dependent records, such as deleting a show that still has
// bookings. Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert collides with an existing
// primary or unique key.
var ErrDuplicate = errors.New("duplicate key")

// ErrInsufficientSeats is returned by ShowRepo.AdjustSeats when applying
// the delta would drive available seats below zero.
var ErrInsufficientSeats = errors.New("not enough seats available")

// MySQL server error numbers.
const (
	mysqlDuplicateEntry    = 1062
	mysqlRowIsReferenced   = 1451
	mysqlNoReferencedRow   = 1452
	mysqlRowIsReferencedV2 = 1217
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// isDuplicate reports a unique/primary key violation.
func isDuplicate(err error) bool {
	return mysqlErrorNumber(err) == mysqlDuplicateEntry
}

// isReferenced reports a delete/update blocked by a foreign key.
func isReferenced(err error) bool {
	n := mysqlErrorNumber(err)
	return n == mysqlRowIsReferenced || n == mysqlRowIsReferencedV2
}

// isMissingParent reports an insert whose foreign key points nowhere.
func isMissingParent(err error) bool {
	return mysqlErrorNumber(err) == mysqlNoReferencedRow
}
