package compiler

import (
	"github.com/nikandfor/tlog"

	"github.com/therealbnut/rune/internal/ast"
	"github.com/therealbnut/rune/internal/hash"
	"github.com/therealbnut/rune/internal/ir"
	"github.com/therealbnut/rune/internal/item"
	"github.com/therealbnut/rune/internal/token"
)

type indexedKind uint8

const (
	indexedFunction indexedKind = iota
	indexedInstanceFunction
	indexedClosure
	indexedStruct
	indexedEnum
	indexedVariant
)

// indexed is a declaration found by the indexer whose meta has not been
// computed yet.
type indexed struct {
	kind indexedKind
	item item.Item
	span token.Span

	fn       *ast.FnDecl
	closure  *ast.ExprClosure
	captures []string
	call     ir.CallKind

	body ast.StructBody
	enum item.Item
}

type buildKind uint8

const (
	buildFunction buildKind = iota
	buildInstanceFunction
	buildClosure
)

func (k buildKind) String() string {
	switch k {
	case buildFunction:
		return "function"
	case buildInstanceFunction:
		return "instance function"
	default:
		return "closure"
	}
}

// build is an entry of the worklist: one function body to compile.
type build struct {
	kind buildKind
	item item.Item

	fn       *ast.FnDecl
	closure  *ast.ExprClosure
	captures []string
	call     ir.CallKind

	// impl is the type an instance function is declared on.
	impl     item.Item
	implSpan token.Span
}

func (b *build) span() token.Span {
	if b.closure != nil {
		return b.closure.Span()
	}
	return b.fn.Span()
}

// Query resolves script declared items to metas on demand and queues
// their bodies for compilation the first time they are asked for.
type Query struct {
	unit *ir.Unit

	indexed map[string]*indexed
	metas   map[string]*ir.Meta
	queue   []*build

	nodes map[ast.Node]item.Item
}

func NewQuery(unit *ir.Unit) *Query {
	return &Query{
		unit:    unit,
		indexed: make(map[string]*indexed),
		metas:   make(map[string]*ir.Meta),
		nodes:   make(map[ast.Node]item.Item),
	}
}

// Index registers a declaration under its item.
func (q *Query) Index(e *indexed) error {
	key := e.item.Key()
	if old, ok := q.indexed[key]; ok {
		return errorf(KindItemConflict, e.span, "`%v` is already declared at %v", e.item, old.span)
	}

	tlog.V("query").Printw("index", "item", e.item, "kind", e.kind)

	q.indexed[key] = e
	return nil
}

// ItemOf returns the item the indexer assigned to a block or closure.
func (q *Query) ItemOf(n ast.Node) (item.Item, bool) {
	it, ok := q.nodes[n]
	return it, ok
}

func (q *Query) setItem(n ast.Node, it item.Item) {
	q.nodes[n] = it
}

// Queue appends a body to the worklist.
func (q *Query) Queue(b *build) {
	tlog.V("query").Printw("queue", "item", b.item, "kind", b.kind)
	q.queue = append(q.queue, b)
}

// Next pops the oldest entry of the worklist.
func (q *Query) Next() (*build, bool) {
	if len(q.queue) == 0 {
		return nil, false
	}
	b := q.queue[0]
	q.queue[0] = nil
	q.queue = q.queue[1:]
	return b, true
}

// Pending returns the number of entries left in the worklist.
func (q *Query) Pending() int {
	return len(q.queue)
}

// QueryMeta returns the meta of a script declared item, or nil if nothing
// is declared at it. Functions and closures are queued for compilation the
// first time they are queried.
func (q *Query) QueryMeta(it item.Item, span token.Span) (*ir.Meta, error) {
	key := it.Key()

	if meta, ok := q.metas[key]; ok {
		return meta, nil
	}

	e, ok := q.indexed[key]
	if !ok {
		return nil, nil
	}

	meta, err := q.buildMeta(e, span)
	if err != nil {
		return nil, err
	}

	tlog.V("query").Printw("meta", "item", it, "meta", meta)

	q.metas[key] = meta
	return meta, nil
}

func (q *Query) buildMeta(e *indexed, span token.Span) (*ir.Meta, error) {
	meta := &ir.Meta{
		Item: e.item.Clone(),
		Hash: hash.TypeHash(e.item),
	}

	switch e.kind {
	case indexedFunction:
		meta.Kind = ir.MetaFunction
		meta.Args = len(e.fn.Args)

		q.Queue(&build{kind: buildFunction, item: meta.Item, fn: e.fn, call: e.call})
		return meta, nil
	case indexedInstanceFunction:
		// queued by the indexer
		meta.Kind = ir.MetaFunction
		meta.Args = len(e.fn.Args)
		return meta, nil
	case indexedClosure:
		meta.Kind = ir.MetaClosure
		meta.Args = len(e.closure.Args)
		meta.Captures = e.captures

		q.Queue(&build{kind: buildClosure, item: meta.Item, closure: e.closure, captures: e.captures, call: e.call})
		return meta, nil
	case indexedEnum:
		meta.Kind = ir.MetaEnum
	case indexedStruct:
		switch e.body.Kind {
		case ast.StructNamed:
			meta.Kind = ir.MetaStruct
			meta.Fields = ir.FieldSet(e.body.Fields...)
		default:
			meta.Kind = ir.MetaTuple
			meta.Args = len(e.body.Fields)
		}
	case indexedVariant:
		meta.Enum = e.enum.Clone()
		meta.EnumHash = hash.TypeHash(e.enum)

		switch e.body.Kind {
		case ast.StructNamed:
			meta.Kind = ir.MetaVariantStruct
			meta.Fields = ir.FieldSet(e.body.Fields...)
		default:
			meta.Kind = ir.MetaVariantTuple
			meta.Args = len(e.body.Fields)
		}
	default:
		return nil, internalf(span, "unknown indexed kind %d", e.kind)
	}

	if err := q.unit.NewType(meta); err != nil {
		return nil, internalf(span, "%v", err)
	}

	return meta, nil
}
