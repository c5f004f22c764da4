package cellid

import (
	"fmt"
	"regexp"
	"strconv"
)

// ID is the stable identifier of a cell.
type ID string

// None is the zero ID. It never refers to a cell.
const None ID = ""

// idRegex matches the canonical form of an identifier.
var idRegex = regexp.MustCompile(`^c([1-9][0-9]*)$`)

// New builds the identifier with the given sequence number.
func New(seq int) ID {
	return ID(fmt.Sprintf("c%d", seq))
}

// Parse validates rawID and returns it as an ID.
func Parse(rawID string) (ID, error) {
	if rawID == "" {
		return None, fmt.Errorf("cell identifier cannot be empty")
	}
	matches := idRegex.FindStringSubmatch(rawID)
	if matches == nil {
		return None, fmt.Errorf("invalid cell identifier: %q", rawID)
	}
	if _, err := strconv.Atoi(matches[1]); err != nil {
		return None, fmt.Errorf("cell identifier out of range: %q", rawID)
	}
	return ID(rawID), nil
}

// Seq returns the sequence number of the identifier, or 0 if it is malformed.
func (id ID) Seq() int {
	matches := idRegex.FindStringSubmatch(string(id))
	if matches == nil {
		return 0
	}
	seq, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return seq
}

func (id ID) String() string {
	return string(id)
}

// Less orders identifiers by sequence number, i.e. by allocation order.
func Less(a, b ID) bool {
	sa, sb := a.Seq(), b.Seq()
	if sa != sb {
		return sa < sb
	}
	return a < b
}
