package chunk

// Chunk is a contiguous run of whitespace-delimited words taken from a document.
type Chunk struct {
	// Index is the zero-based position of the chunk in the document.
	Index int
	ID    string
	Text  string
	// Hash identifies the chunk text; resumed runs match completed chunks on it.
	Hash  string
	Words int
}
