package engine

import "fmt"

// Kind classifies a handle.
type Kind uint8

const (
	KindOptions Kind = iota
	KindReadOptions
	KindWriteOptions
	KindDatabase
	KindWriteBatch
	KindValue
	KindErrString

	numKinds
)

var kindNames = [numKinds]string{
	KindOptions:      "options",
	KindReadOptions:  "read_options",
	KindWriteOptions: "write_options",
	KindDatabase:     "database",
	KindWriteBatch:   "write_batch",
	KindValue:        "value",
	KindErrString:    "error_string",
}

func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Kinds lists every handle kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Kind(0); k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Counts holds the number of live handles per kind.
type Counts map[Kind]int

// Total sums the counts of the given kinds, or of every kind when none are given.
func (c Counts) Total(kinds ...Kind) int {
	if len(kinds) == 0 {
		kinds = Kinds()
	}
	n := 0
	for _, k := range kinds {
		n += c[k]
	}
	return n
}

// Transient sums the handles that are expected to be released during normal
// operation. Configuration objects live for the whole process and are left out.
func (c Counts) Transient() int {
	return c.Total(KindDatabase, KindWriteBatch, KindValue, KindErrString)
}
