// pkg/heap/errors.go
package heap

import "errors"

var (
	// ErrEndOfFile is returned by Scan.Next when the scan has visited
	// every record in the file. It signals normal termination.
	ErrEndOfFile = errors.New("heap: end of file")

	// ErrInvalidRecLen is returned for records that can never fit on a
	// single page.
	ErrInvalidRecLen = errors.New("heap: record too large for a page")

	// ErrBadScanParam is returned by StartScan for invalid predicates.
	ErrBadScanParam = errors.New("heap: bad scan parameter")

	// ErrNoCurrentRecord is returned by cursor operations that need a
	// current record when the scan has not positioned on one.
	ErrNoCurrentRecord = errors.New("heap: no current record")

	// ErrNameTooLong is returned by Create when the file name does not
	// fit the header's fixed name field.
	ErrNameTooLong = errors.New("heap: file name too long")

	// ErrBadHeader is returned when the first page of a file does not
	// hold a well-formed heap file header.
	ErrBadHeader = errors.New("heap: malformed file header")
)
