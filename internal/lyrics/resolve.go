package lyrics

// Resolve returns the index of the line that is current at queryMs. the table
// is scanned from the end and the first line with a timestamp at or before the
// query wins, so unsorted tables degrade predictably. ok is false when no line
// has started yet or the document is empty.
func Resolve(doc Document, queryMs int64) (index int, ok bool) {
	for i := len(doc.lines) - 1; i >= 0; i-- {
		if doc.lines[i].TimestampMs <= queryMs {
			return i, true
		}
	}
	return 0, false
}

// Resolver tracks the current line of one document across position updates.
// every update rescans the whole table; the remembered index is only used to
// report changes.
type Resolver struct {
	doc     Document
	index   int
	hasLine bool
}

func NewResolver(doc Document) *Resolver {
	return &Resolver{doc: doc}
}

func (r *Resolver) Document() Document {
	return r.doc
}

// Current returns the last resolved index.
func (r *Resolver) Current() (int, bool) {
	return r.index, r.hasLine
}

// Update resolves queryMs and reports whether the current line changed,
// including transitions to and from "no line".
func (r *Resolver) Update(queryMs int64) (index int, ok bool, changed bool) {
	index, ok = Resolve(r.doc, queryMs)
	changed = ok != r.hasLine || (ok && index != r.index)
	r.index, r.hasLine = index, ok
	return index, ok, changed
}
