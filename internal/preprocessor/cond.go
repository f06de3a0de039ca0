package preprocessor

// ---------------- Conditionals ----------------

type condStack struct {
	stack []condFrame
}

type condFrame struct {
	// ignore marks a conditional that belongs to the other pass; its
	// directives are passed through untouched.
	ignore bool
	taken  bool
	// closed is set by an #else that follows a taken branch; no further
	// #else or #elif may follow it.
	closed bool
	mask   uint64
	start  int
}

func (c *condStack) Depth() int { return len(c.stack) }

func (c *condStack) Push(f condFrame) {
	c.stack = append(c.stack, f)
}

// Top returns the innermost frame, or nil when no conditional is open.
func (c *condStack) Top() *condFrame {
	if len(c.stack) == 0 {
		return nil
	}
	return &c.stack[len(c.stack)-1]
}

func (c *condStack) Pop() {
	if len(c.stack) == 0 {
		return
	}
	c.stack = c.stack[:len(c.stack)-1]
}

// Mask is the union of the masks of every open conditional.
func (c *condStack) Mask() uint64 {
	var m uint64
	for _, f := range c.stack {
		m |= f.mask
	}
	return m
}

// Truncate drops frames above depth and returns the innermost dropped one.
func (c *condStack) Truncate(depth int) (condFrame, bool) {
	if len(c.stack) <= depth {
		return condFrame{}, false
	}
	f := c.stack[depth]
	c.stack = c.stack[:depth]
	return f, true
}
