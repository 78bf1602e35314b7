package literal

// Location is a 1-based line/column position.
type Location struct {
	File   string
	Line   int
	Column int
}

// Literal is a plain string literal. Text is the decoded value; Offset is
// where the value starts inside the literal element (after the opening
// delimiter and any prefix). Start and End are byte offsets of the element.
type Literal struct {
	Text     string
	Offset   int
	Start    int
	End      int
	Location Location
	Language string

	// index[i] is the offset in the raw value of the source of Text[i];
	// nil when Text is the raw value unchanged.
	index []int
}

// ElementOffset maps an offset into Text to the matching offset inside the
// literal element, so ranges past an escape sequence still point at the
// right source bytes.
func (l Literal) ElementOffset(i int) int {
	if l.index == nil || i < 0 || i >= len(l.index) {
		return l.Offset + i
	}
	return l.Offset + l.index[i]
}
