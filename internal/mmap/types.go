package mmap

// Hint is a kernel advice value for the expected access pattern of a Map.
type Hint int

const (
	// HintNone gives no advice.
	HintNone Hint = iota

	// HintSequential expects front-to-back reads, as when a payload object
	// is decoded whole.
	HintSequential

	// HintRandom expects scattered reads, as when snapshot sections are
	// loaded by directory offset.
	HintRandom

	// HintWillNeed expects the whole mapping to be read soon.
	HintWillNeed

	// HintDontNeed expects no further reads.
	HintDontNeed
)
