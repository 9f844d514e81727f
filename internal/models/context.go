package models

// Context is the ordered set of chunks selected for one query, already
// rendered to prompt text. It is immutable once assembled: the assembler
// returns a fully-built value and nothing mutates it afterwards.
type Context struct {
	// Text is the rendered context window, one "[n] label: text" block per chunk.
	Text string
	// Chunks are the included chunks in ranked order.
	Chunks []*Chunk
	// Citations mirrors Chunks order.
	Citations []Citation
	// Size is the cumulative character count of Text.
	Size int
}

// Empty reports whether no chunk survived assembly.
func (c *Context) Empty() bool {
	return len(c.Chunks) == 0
}
