package models

const (
	// ContextSeparator joins retrieved chunk contents inside the prompt.
	ContextSeparator = "\n\n---\n\n"

	// MetaFileName is the metadata key carrying the stored file name.
	MetaFileName = "file_name"
	// MetaSourcePath is the metadata key carrying the original source path.
	MetaSourcePath = "source"
	// MetaPageNumber is the metadata key carrying the page number.
	MetaPageNumber = "page"
)
