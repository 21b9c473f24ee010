package git

import (
	"errors"
	"os"
	"sync"

	billy "github.com/go-git/go-billy/v5"
)

var (
	// ErrTooManyFiles is returned when a clone creates more files than allowed
	ErrTooManyFiles = errors.New("too many files")

	// ErrTooLarge is returned when a clone writes more bytes than allowed
	ErrTooLarge = errors.New("total file size exceeded")
)

type fsUsage struct {
	mu    sync.Mutex
	files int64
	bytes int64
}

// LimitedFs bounds the number of files and total bytes written to the wrapped filesystem
type LimitedFs struct {
	billy.Filesystem

	MaxFiles      int64
	TotalFileSize int64

	usage *fsUsage
}

// NewLimitedFs wraps fs with the given limits
func NewLimitedFs(fs billy.Filesystem, maxFiles, totalFileSize int64) *LimitedFs {
	return &LimitedFs{Filesystem: fs, MaxFiles: maxFiles, TotalFileSize: totalFileSize, usage: &fsUsage{}}
}

// Create creates the named file, counting it against the file limit
func (f *LimitedFs) Create(filename string) (billy.File, error) {
	return f.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
}

// OpenFile opens the named file, counting newly created files against the file limit
func (f *LimitedFs) OpenFile(filename string, flag int, perm os.FileMode) (billy.File, error) {
	if flag&os.O_CREATE != 0 {
		if _, err := f.Filesystem.Stat(filename); errors.Is(err, os.ErrNotExist) {
			if err := f.addFile(); err != nil {
				return nil, err
			}
		}
	}
	file, err := f.Filesystem.OpenFile(filename, flag, perm)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: file, fs: f}, nil
}

// TempFile creates a temporary file, counting it against the file limit
func (f *LimitedFs) TempFile(dir, prefix string) (billy.File, error) {
	if err := f.addFile(); err != nil {
		return nil, err
	}
	file, err := f.Filesystem.TempFile(dir, prefix)
	if err != nil {
		return nil, err
	}
	return &limitedFile{File: file, fs: f}, nil
}

// Chroot returns a filesystem rooted at path that shares this filesystem's limits
func (f *LimitedFs) Chroot(path string) (billy.Filesystem, error) {
	inner, err := f.Filesystem.Chroot(path)
	if err != nil {
		return nil, err
	}
	return &LimitedFs{Filesystem: inner, MaxFiles: f.MaxFiles, TotalFileSize: f.TotalFileSize, usage: f.usageOf()}, nil
}

func (f *LimitedFs) usageOf() *fsUsage {
	if f.usage == nil {
		f.usage = &fsUsage{}
	}
	return f.usage
}

func (f *LimitedFs) addFile() error {
	u := f.usageOf()
	u.mu.Lock()
	defer u.mu.Unlock()
	if f.MaxFiles > 0 && u.files >= f.MaxFiles {
		return ErrTooManyFiles
	}
	u.files++
	return nil
}

func (f *LimitedFs) addBytes(n int) error {
	u := f.usageOf()
	u.mu.Lock()
	defer u.mu.Unlock()
	if f.TotalFileSize > 0 && u.bytes+int64(n) > f.TotalFileSize {
		return ErrTooLarge
	}
	u.bytes += int64(n)
	return nil
}

type limitedFile struct {
	billy.File
	fs *LimitedFs
}

func (l *limitedFile) Write(p []byte) (int, error) {
	if err := l.fs.addBytes(len(p)); err != nil {
		return 0, err
	}
	return l.File.Write(p)
}
