package types

// ManifestEntry describes one syncable file by content hash
type ManifestEntry struct {
	Path      string `json:"path"` // relative, POSIX separators
	SHA256    string `json:"sha256"`
	MtimeUnix int64  `json:"mtime_unix"`
	SizeBytes int64  `json:"size_bytes"`
	Category  string `json:"category"`
}

// Manifest is the server's syncable content set. The ETag is derived from
// the sorted (path, sha256) pairs only.
type Manifest struct {
	ETag      string          `json:"etag"`
	FileCount int             `json:"file_count"`
	Files     []ManifestEntry `json:"files"`
}
