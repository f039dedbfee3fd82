package api

// Bundle is the structured wire description of a Quill: a nested file
// description plus optional metadata.
type Bundle struct {
	// Files maps each root entry name to its node description. A file node
	// is {"contents": "text"} or {"contents": [byte, ...]}; any other
	// object, including {}, is a directory.
	Files map[string]any `json:"files"`
	// Metadata is optional and informational.
	Metadata *BundleMetadata `json:"metadata,omitempty"`
}

// BundleMetadata carries caller-side information about a bundle.
type BundleMetadata struct {
	// Name is the caller's default name. The manifest name always wins.
	Name string `json:"name,omitempty"`
}
