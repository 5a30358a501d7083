package domain

// DatasetRecord is the acquisition pipeline's output. Field names follow
// the client contract of the original service.
type DatasetRecord struct {
	DatasetName string   `json:"dataset_name"`
	Title       string   `json:"title"`
	Subtitle    string   `json:"subtitle"`
	Description string   `json:"description"`
	Datasets    []string `json:"datasets"`

	// Previews maps table id to its rendered preview (headers + first rows).
	Previews map[string]TablePreview `json:"previews,omitempty"`
}

// TablePreview is the rendered head of one table file: column headers and
// the first data rows as comma-delimited lines, no header row repeated.
type TablePreview struct {
	Headers []string `json:"headers"`
	Rows    []string `json:"rows"`
}

// Manifest is the remote platform's dataset descriptor.
type Manifest struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
}
