package main

// listPane tracks cursor and scroll state for one windowed table pane.
// Only rows inside the visible window are rendered, so drawing cost
// stays constant no matter how fragmented the machine gets.
type listPane struct {
	cursor int
	offset int
	width  int
	height int
}

// setSize updates the pane dimensions. The height includes the table
// header line.
func (p *listPane) setSize(width, height int) {
	p.width = width
	p.height = height
}

// visibleRows is the row budget left after the table header line.
func (p *listPane) visibleRows() int {
	rows := p.height - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}

// clampCursor keeps the cursor and scroll window inside a list that may
// have shrunk since the last refresh.
func (p *listPane) clampCursor(count int) {
	if p.cursor >= count {
		p.cursor = count - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
	p.ensureVisible(count)
}

func (p *listPane) moveUp(count int) {
	if p.cursor > 0 {
		p.cursor--
	}
	p.ensureVisible(count)
}

func (p *listPane) moveDown(count int) {
	if p.cursor < count-1 {
		p.cursor++
	}
	p.ensureVisible(count)
}

func (p *listPane) pageUp(count int) {
	p.cursor -= p.visibleRows()
	if p.cursor < 0 {
		p.cursor = 0
	}
	p.ensureVisible(count)
}

func (p *listPane) pageDown(count int) {
	p.cursor += p.visibleRows()
	if p.cursor > count-1 {
		p.cursor = count - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
	p.ensureVisible(count)
}

func (p *listPane) home(count int) {
	p.cursor = 0
	p.ensureVisible(count)
}

func (p *listPane) end(count int) {
	p.cursor = count - 1
	if p.cursor < 0 {
		p.cursor = 0
	}
	p.ensureVisible(count)
}

// window returns the half-open row range currently on screen.
func (p *listPane) window(count int) (start, end int) {
	start = p.offset
	end = start + p.visibleRows()
	if end > count {
		end = count
	}
	if start > end {
		start = end
	}
	return start, end
}

// ensureVisible scrolls the window so the cursor stays on screen. The
// offset is clamped so the list never scrolls past its end.
func (p *listPane) ensureVisible(count int) {
	rows := p.visibleRows()

	// Scroll up if cursor is above the visible area
	if p.cursor < p.offset {
		p.offset = p.cursor
	}

	// Scroll down if cursor is below the visible area
	if p.cursor >= p.offset+rows {
		p.offset = p.cursor - rows + 1
	}

	maxOffset := count - rows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if p.offset > maxOffset {
		p.offset = maxOffset
	}
	if p.offset < 0 {
		p.offset = 0
	}
}
