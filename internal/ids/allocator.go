package ids

// Allocator hands out numeric element IDs in document order. IDs start at 1
// and advance by a per-element-type increment so that related sub-elements
// (extended tooltips, context menus) keep their conventional slots free.
type Allocator struct {
	next int
}

// Start is the first ID a fresh allocator produces.
const Start = 1

// Increments per element type. Anything not listed advances by the default.
const (
	defaultIncrement     = 3
	tableColumnIncrement = 2
	pageIncrement        = 2
)

var increments = map[string]int{
	"TableColumn": tableColumnIncrement,
	"Page":        pageIncrement,
}

// New returns an allocator positioned at Start.
func New() *Allocator {
	return &Allocator{next: Start}
}

// NewAt returns an allocator positioned at start.
func NewAt(start int) *Allocator {
	if start < 1 {
		start = 1
	}
	return &Allocator{next: start}
}

// Next returns the current ID and advances by the increment for elementType.
func (a *Allocator) Next(elementType string) int {
	id := a.next
	a.next += IncrementFor(elementType)
	return id
}

// Peek returns the ID the next allocation would produce without advancing.
func (a *Allocator) Peek() int {
	return a.next
}

// Skip advances the allocator by n without producing an ID.
func (a *Allocator) Skip(n int) {
	if n > 0 {
		a.next += n
	}
}

// Reserve claims a contiguous block of n default-increment slots and returns
// the first ID of the block.
func (a *Allocator) Reserve(n int) int {
	start := a.next
	if n > 0 {
		a.next += n * defaultIncrement
	}
	return start
}

// Reset repositions the allocator at start.
func (a *Allocator) Reset(start int) {
	if start < 1 {
		start = 1
	}
	a.next = start
}

// IncrementFor reports the ID step used for elementType.
func IncrementFor(elementType string) int {
	if inc, ok := increments[elementType]; ok {
		return inc
	}
	return defaultIncrement
}
