package ingest

// Options controls how inputs are resolved.
type Options struct {
	// CWD anchors relative paths and patterns. Empty means the process directory.
	CWD string
	// MaxFileSizeBytes rejects larger files. Zero uses DefaultMaxFileSizeBytes.
	MaxFileSizeBytes int64
}

const DefaultMaxFileSizeBytes = 64 * 1024 * 1024

func (o *Options) maxFileSize() int64 {
	if o == nil || o.MaxFileSizeBytes <= 0 {
		return DefaultMaxFileSizeBytes
	}
	return o.MaxFileSizeBytes
}
