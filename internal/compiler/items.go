package compiler

import (
	"github.com/therealbnut/rune/internal/item"
)

type itemNode struct {
	comp item.Component
	// children counts the anonymous blocks and closures created directly
	// under this node, to number the next one.
	children int
}

// Items tracks the path of the item being indexed or compiled.
type Items struct {
	root  itemNode
	nodes []itemNode
}

// ItemsGuard restores the path that was current when it was created.
type ItemsGuard struct {
	items *Items
	saved []itemNode
}

// Pop restores the previous path.
func (g ItemsGuard) Pop() {
	g.items.nodes = g.saved
}

func NewItems(base item.Item) *Items {
	it := &Items{}
	for _, c := range base {
		it.nodes = append(it.nodes, itemNode{comp: c})
	}
	return it
}

func (it *Items) guard() ItemsGuard {
	return ItemsGuard{items: it, saved: it.nodes[:len(it.nodes):len(it.nodes)]}
}

func (it *Items) nextIndex() int {
	n := &it.root
	if len(it.nodes) > 0 {
		n = &it.nodes[len(it.nodes)-1]
	}
	id := n.children
	n.children++
	return id
}

// PushBlock enters a new anonymous block.
func (it *Items) PushBlock() ItemsGuard {
	g := it.guard()
	it.nodes = append(it.nodes, itemNode{comp: item.Block(it.nextIndex())})
	return g
}

// PushClosure enters a new anonymous closure.
func (it *Items) PushClosure() ItemsGuard {
	g := it.guard()
	it.nodes = append(it.nodes, itemNode{comp: item.Closure(it.nextIndex())})
	return g
}

// PushName enters a named item.
func (it *Items) PushName(name string) ItemsGuard {
	g := it.guard()
	it.nodes = append(it.nodes, itemNode{comp: item.Str(name)})
	return g
}

// Enter makes target the current path, as when compiling an item that was
// named during indexing.
func (it *Items) Enter(target item.Item) ItemsGuard {
	g := it.guard()
	nodes := make([]itemNode, 0, len(target))
	for _, c := range target {
		nodes = append(nodes, itemNode{comp: c})
	}
	it.nodes = nodes
	return g
}

// Item returns a copy of the current path.
func (it *Items) Item() item.Item {
	out := make(item.Item, len(it.nodes))
	for i, n := range it.nodes {
		out[i] = n.comp
	}
	return out
}
