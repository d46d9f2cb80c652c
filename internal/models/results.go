package models

// DecompressionResult holds the result of a decompression scan.
type DecompressionResult struct {
	ExtractedFiles    []string
	ProcessedArchives []string
	FailedArchives    []string
}

// CompressionResult holds the result of a folder compression.
type CompressionResult struct {
	OutputPath    string
	EntriesAdded  int
	EntriesFailed int
}

// FlattenResult holds the result of a folder flattening pass.
type FlattenResult struct {
	FoldersMerged     int
	EntriesMoved      int
	DuplicatesRemoved int
}

// ImageResult holds the result of an image harvesting run.
type ImageResult struct {
	ImagesFolder string
	Copied       int
	Failed       int
}
