package blobstore

import (
	"io/ioutil"
	"os"

	"github.com/edsrzf/mmap-go"
)

// readForVerify reads a blob's full content for digest re-checking.
// Files of at least mmapThreshold bytes are read through a memory map
// whose content is then copied into a new heap slice, so the returned
// bytes do not avoid a heap copy; if mapping fails the file is read
// with ioutil.ReadFile. Smaller files just go through ioutil.ReadFile.
func readForVerify(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.Size() < mmapThreshold {
		return ioutil.ReadFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return ioutil.ReadFile(path)
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}
