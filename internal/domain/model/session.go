package model

// ChunkSession tracks how many bytes of one in-flight file have been
// durably committed. Owned by the chunk store while the transfer is
// incomplete; destroyed on completion or abandonment.
type ChunkSession struct {
	Filename  string `json:"filename"`
	Offset    int64  `json:"offset"`
	TotalSize int64  `json:"total_size"`
}

// Complete reports whether every declared byte has been committed.
func (s ChunkSession) Complete() bool {
	return s.TotalSize > 0 && s.Offset >= s.TotalSize
}
