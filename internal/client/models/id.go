package models

import (
	"strconv"
	"time"
)

// ID identifies a record. Remote-assigned ids are positive; ids assigned
// locally for records created offline are negative.
type ID int64

// IsProvisional reports whether the record was created offline and has not
// been accepted by the remote yet.
func (id ID) IsProvisional() bool { return id < 0 }

func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseID parses a decimal record id.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Entity is implemented by every record kept in an id-keyed collection.
type Entity[T any] interface {
	RecordID() ID
	WithID(id ID) T
}

// NextProvisionalID derives a provisional id from the clock while staying
// strictly below last, the lowest provisional id handed out so far.
func NextProvisionalID(now time.Time, last ID) ID {
	candidate := ID(-now.UnixMilli())
	if candidate >= 0 {
		candidate = -1
	}
	if last < 0 && candidate >= last {
		candidate = last - 1
	}
	return candidate
}
