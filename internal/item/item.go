// Package item implements item paths: the fully qualified names that
// declarations, blocks and closures are known by during compilation.
package item

import (
	"strconv"
	"strings"
)

// Kind is the kind of a path component.
type Kind uint8

const (
	KindString Kind = iota
	KindBlock
	KindClosure
)

// Component is one segment of an item path.
type Component struct {
	Kind Kind
	Name string // KindString only
	ID   int    // KindBlock and KindClosure only
}

// Str returns a named component.
func Str(name string) Component {
	return Component{Kind: KindString, Name: name}
}

// Block returns an anonymous block component.
func Block(id int) Component {
	return Component{Kind: KindBlock, ID: id}
}

// Closure returns an anonymous closure component.
func Closure(id int) Component {
	return Component{Kind: KindClosure, ID: id}
}

func (c Component) String() string {
	switch c.Kind {
	case KindBlock:
		return "$block" + strconv.Itoa(c.ID)
	case KindClosure:
		return "$closure" + strconv.Itoa(c.ID)
	default:
		return c.Name
	}
}

// Item is an ordered path such as std::io::print.
// The zero value is the root item.
type Item []Component

// Of builds an item out of named components.
func Of(names ...string) Item {
	it := make(Item, 0, len(names))
	for _, name := range names {
		it = append(it, Str(name))
	}
	return it
}

// Parse splits a `::` separated path into an item.
func Parse(path string) Item {
	if path == "" {
		return nil
	}
	return Of(strings.Split(path, "::")...)
}

// Clone returns a copy that does not share storage with it.
func (it Item) Clone() Item {
	if it == nil {
		return nil
	}
	out := make(Item, len(it))
	copy(out, it)
	return out
}

// Join returns a new item with other appended.
func (it Item) Join(other Item) Item {
	out := make(Item, 0, len(it)+len(other))
	out = append(out, it...)
	return append(out, other...)
}

// Extended returns a new item with the given components appended.
func (it Item) Extended(cs ...Component) Item {
	out := make(Item, 0, len(it)+len(cs))
	out = append(out, it...)
	return append(out, cs...)
}

// Pop removes the last component. It reports false on the root item.
func (it *Item) Pop() (Component, bool) {
	n := len(*it)
	if n == 0 {
		return Component{}, false
	}
	last := (*it)[n-1]
	*it = (*it)[:n-1]
	return last, true
}

// Last returns the final component.
func (it Item) Last() (Component, bool) {
	if len(it) == 0 {
		return Component{}, false
	}
	return it[len(it)-1], true
}

// AsLocal returns the name if the item is a single named component,
// which is how plain identifiers appear.
func (it Item) AsLocal() (string, bool) {
	if len(it) == 1 && it[0].Kind == KindString {
		return it[0].Name, true
	}
	return "", false
}

// HasPrefix reports whether prefix is a leading sub-path of it.
func (it Item) HasPrefix(prefix Item) bool {
	if len(prefix) > len(it) {
		return false
	}
	for i, c := range prefix {
		if it[i] != c {
			return false
		}
	}
	return true
}

// Equal reports whether the two items name the same path.
func (it Item) Equal(other Item) bool {
	return len(it) == len(other) && it.HasPrefix(other)
}

// String renders the item as a `::` separated path.
func (it Item) String() string {
	if len(it) == 0 {
		return "{root}"
	}
	var sb strings.Builder
	for i, c := range it {
		if i > 0 {
			sb.WriteString("::")
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Key returns a string usable as a map key for the item.
func (it Item) Key() string {
	var sb strings.Builder
	for i, c := range it {
		if i > 0 {
			sb.WriteByte(0)
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}
