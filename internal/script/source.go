package script

// Reader walks a structured script document. The document is a tree of
// named elements; lists hold tagged elements whose tag selects what the
// element is (an action kind, a condition kind, a conversation kind).
//
// Reads address children of the current element by name. Each positions
// the reader inside every list item in turn and restores the position
// afterwards.
type Reader interface {
	// Enter makes the named child element current.
	Enter(name string) error

	// Exit returns to the element that was current before the last Enter.
	Exit() error

	// Has reports whether the current element has a non-null child name.
	Has(name string) bool

	ReadInt(name string) (int, error)
	ReadText(name string) (string, error)
	ReadBool(name string) (bool, error)
	ReadTextList(name string) ([]string, error)

	// Each calls fn once per item of the named list with the item's tag,
	// with the item's body as the current element. A missing list has no
	// items. Iteration stops at the first error.
	Each(name string, fn func(tag string) error) error
}

// Writer builds a structured document in the shape a [Reader] reads.
type Writer interface {
	// Begin opens a child element. Inside a list, name is the item's tag.
	Begin(name string) error
	End() error

	BeginList(name string) error
	EndList() error

	WriteInt(name string, v int) error
	WriteText(name string, v string) error
	WriteBool(name string, v bool) error
	WriteTextList(name string, v []string) error
}
