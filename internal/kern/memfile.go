package kern

import (
	"errors"
	"sync"
)

// Namespace errors.
var (
	ErrNotFound = errors.New("no such file")
	ErrExists   = errors.New("file exists")
)

// MemFile is an in-memory file body. It stands in for the kernel's eventual
// on-disk files; the descriptor layer only ever touches it through a Handle.
type MemFile struct {
	mu   sync.Mutex
	name string
	data []byte
}

// Name returns the path the file was created under.
func (f *MemFile) Name() string { return f.name }

// Len returns the current file length.
func (f *MemFile) Len() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data))
}

// Handle is one open view of a MemFile: a cursor plus an append flag. The
// kernel tracks the offset, not the C library; seek and sequential I/O both
// go through here.
type Handle struct {
	mu     sync.Mutex
	f      *MemFile
	off    int64
	append bool
}

// OpenHandle opens a cursor on f. When appnd is set, every write lands at the
// end of the file regardless of the cursor.
func OpenHandle(f *MemFile, appnd bool) *Handle {
	return &Handle{f: f, append: appnd}
}

// Read copies bytes at the cursor, advancing it. A read at or past the end of
// the file returns 0.
func (h *Handle) Read(dst []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	if h.off >= int64(len(h.f.data)) {
		return 0, nil
	}
	n := copy(dst, h.f.data[h.off:])
	h.off += int64(n)
	return n, nil
}

// Write copies bytes at the cursor (or the end, for append handles), growing
// the file as needed, and advances the cursor past the written region.
func (h *Handle) Write(src []byte) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.f.mu.Lock()
	defer h.f.mu.Unlock()

	if h.append {
		h.off = int64(len(h.f.data))
	}
	end := h.off + int64(len(src))
	if end > int64(len(h.f.data)) {
		grown := make([]byte, end)
		copy(grown, h.f.data)
		h.f.data = grown
	}
	copy(h.f.data[h.off:end], src)
	h.off = end
	return len(src), nil
}

// Seek moves the cursor to an absolute offset. Negative offsets are the
// caller's error to reject; the kernel clamps nothing.
func (h *Handle) Seek(off int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.off = off
}

// Offset returns the current cursor position.
func (h *Handle) Offset() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.off
}

// Len returns the current length of the underlying file.
func (h *Handle) Len() int64 { return h.f.Len() }

// Namespace maps paths to in-memory files. One namespace plays the role of
// the process's view of the filesystem.
type Namespace struct {
	mu    sync.Mutex
	files map[string]*MemFile
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{files: make(map[string]*MemFile)}
}

// Open looks up path, optionally creating it. With trunc set, an existing
// file is reset to zero length.
func (ns *Namespace) Open(path string, create, trunc bool) (*MemFile, error) {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	f, ok := ns.files[path]
	if !ok {
		if !create {
			return nil, ErrNotFound
		}
		f = &MemFile{name: path}
		ns.files[path] = f
		return f, nil
	}
	if trunc {
		f.mu.Lock()
		f.data = f.data[:0]
		f.mu.Unlock()
	}
	return f, nil
}

// Remove unlinks path.
func (ns *Namespace) Remove(path string) error {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if _, ok := ns.files[path]; !ok {
		return ErrNotFound
	}
	delete(ns.files, path)
	return nil
}
