package static

import (
	"io"
	"os"
)

// boundedFile reads at most remaining bytes from the file's current offset
// and owns the file handle.
type boundedFile struct {
	f         *os.File
	remaining int64
}

// openRange opens path positioned at spec.Start and limited to spec.Length().
func openRange(path string, spec RangeSpec) (*boundedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(spec.Start, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return &boundedFile{f: f, remaining: spec.Length()}, nil
}

// Read never touches the file once the budget is spent.
func (b *boundedFile) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.f.Read(p)
	b.remaining -= int64(n)
	return n, err
}

func (b *boundedFile) Close() error {
	return b.f.Close()
}
