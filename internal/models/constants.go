package models

const (
	// GutenbergStartMarker and GutenbergEndMarker delimit the license
	// boilerplate of public-domain texts.
	GutenbergStartMarker = "*** START OF"
	GutenbergEndMarker   = "*** END OF"
	MarkerClose          = "***"

	ContextSeparator = "\n\n---\n\n"

	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
	DefaultTopK         = 4

	// NoInformationAnswer is returned when retrieval finds nothing to ground an answer on.
	NoInformationAnswer = "I don't have any information about that in the available books."

	// metadata keys on stored chunks
	MetaBook  = "book"
	MetaTitle = "title"
	MetaChunk = "chunk"
)

var (
	RAGSystemPrompt = `You are a helpful assistant that answers questions based on the provided context.
Use ONLY the information from the context to answer. If the context is empty or doesn't contain
enough information to answer the question, say so honestly.
Be concise and helpful.`

	QuestionPromptTemplate = `Context:
%s

Question: %s`
)
