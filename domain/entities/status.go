package entities

import "fmt"

// Status is an interpreter status code (ACPI_STATUS). The numeric values
// match the interpreter's exception table and must not be renumbered.
type Status uint32

// Environmental status codes.
const (
	StatusOK             Status = 0x0000
	StatusError          Status = 0x0001
	StatusNoMemory       Status = 0x0004
	StatusNotFound       Status = 0x0005
	StatusNotExist       Status = 0x0006
	StatusAlreadyExists  Status = 0x0007
	StatusNotImplemented Status = 0x000E
	StatusSupport        Status = 0x000F
	StatusLimit          Status = 0x0010
	StatusTime           Status = 0x0011
	StatusNotAcquired    Status = 0x0014
	StatusNotConfigured  Status = 0x001C
	StatusAccess         Status = 0x001D
)

// Programmer status codes.
const (
	StatusBadParameter Status = 0x1001
)

var statusNames = map[Status]string{
	StatusOK:             "AE_OK",
	StatusError:          "AE_ERROR",
	StatusNoMemory:       "AE_NO_MEMORY",
	StatusNotFound:       "AE_NOT_FOUND",
	StatusNotExist:       "AE_NOT_EXIST",
	StatusAlreadyExists:  "AE_ALREADY_EXISTS",
	StatusNotImplemented: "AE_NOT_IMPLEMENTED",
	StatusSupport:        "AE_SUPPORT",
	StatusLimit:          "AE_LIMIT",
	StatusTime:           "AE_TIME",
	StatusNotAcquired:    "AE_NOT_ACQUIRED",
	StatusNotConfigured:  "AE_NOT_CONFIGURED",
	StatusAccess:         "AE_ACCESS",
	StatusBadParameter:   "AE_BAD_PARAMETER",
}

// String returns the interpreter mnemonic for the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("AE_UNKNOWN(0x%04X)", uint32(s))
}

// IsOK reports whether the status denotes success.
func (s Status) IsOK() bool {
	return s == StatusOK
}

// Known reports whether the status belongs to the closed taxonomy.
func (s Status) Known() bool {
	_, ok := statusNames[s]
	return ok
}

// Statuses returns every status in the taxonomy, ordered by value.
func Statuses() []Status {
	return []Status{
		StatusOK,
		StatusError,
		StatusNoMemory,
		StatusNotFound,
		StatusNotExist,
		StatusAlreadyExists,
		StatusNotImplemented,
		StatusSupport,
		StatusLimit,
		StatusTime,
		StatusNotAcquired,
		StatusNotConfigured,
		StatusAccess,
		StatusBadParameter,
	}
}
