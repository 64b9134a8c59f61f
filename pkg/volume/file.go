package volume

import (
	"fmt"
	"os"

	"github.com/weberc2/fsck/pkg/types"
	"golang.org/x/sys/unix"
)

// File is an image file mapped into memory. Read-only files are mapped
// `PROT_READ`, so writing to `Bytes()` faults.
type File struct {
	file     *os.File
	data     []byte
	writable bool
}

// OpenFile maps the image at `path`.
func OpenFile(path string, writable bool) (*File, error) {
	flag, prot := os.O_RDONLY, unix.PROT_READ
	if writable {
		flag, prot = os.O_RDWR, unix.PROT_READ|unix.PROT_WRITE
	}
	file, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	return mapFile(file, prot, writable)
}

// CreateFile creates (or truncates) the image at `path` to `size` bytes
// and maps it read-write.
func CreateFile(path string, size types.Byte) (*File, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating image: %w", err)
	}
	if err := file.Truncate(int64(size)); err != nil {
		file.Close()
		return nil, fmt.Errorf("sizing image to `%d` bytes: %w", size, err)
	}
	return mapFile(file, unix.PROT_READ|unix.PROT_WRITE, true)
}

func mapFile(file *os.File, prot int, writable bool) (*File, error) {
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat-ing image: %w", err)
	}
	if info.Size() < 1 {
		file.Close()
		return nil, fmt.Errorf("mapping `%s`: %w", file.Name(), EmptyErr)
	}
	data, err := unix.Mmap(
		int(file.Fd()),
		0,
		int(info.Size()),
		prot,
		unix.MAP_SHARED,
	)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("mapping `%s`: %w", file.Name(), err)
	}
	return &File{file: file, data: data, writable: writable}, nil
}

func (f *File) Bytes() []byte { return f.data }

func (f *File) Flush() error {
	if !f.writable {
		return nil
	}
	if err := unix.Msync(f.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("syncing `%s`: %w", f.file.Name(), err)
	}
	return nil
}

func (f *File) Close() error {
	if err := unix.Munmap(f.data); err != nil {
		f.file.Close()
		return fmt.Errorf("unmapping `%s`: %w", f.file.Name(), err)
	}
	f.data = nil
	return f.file.Close()
}
