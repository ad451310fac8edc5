package blueprint

import (
	"fmt"
	"strconv"
)

// Key addresses one item of a Container, either by position or by ID.
type Key struct {
	index  int
	name   string
	byName bool
}

// Index addresses the i-th item; negative values count from the end.
func Index(i int) Key { return Key{index: i} }

// Name addresses the item whose ID is s.
func Name(s string) Key { return Key{name: s, byName: true} }

func (k Key) String() string {
	if k.byName {
		return strconv.Quote(k.name)
	}
	return fmt.Sprintf("[%d]", k.index)
}
