package shmregion

// MemBackend is an in-process Backend backed by plain Go slices. It has no
// grounding in the original shm_open/mmap path — it exists purely so tests
// (and non-Linux development) can exercise Region/Ref bounds-checking
// without a real shared-memory mapping.
type MemBackend struct{}

func (MemBackend) Open(name string, length int) ([]byte, error) {
	return make([]byte, length), nil
}

func (MemBackend) Close(b []byte) error { return nil }
