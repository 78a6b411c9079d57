package filesystem

import (
	"bytes"
	"io"
	"os"
	"time"

	dp "github.com/forscht/rawbody/internal/dataprovider"
	"github.com/forscht/rawbody/pkg/validator"
)

var validate = validator.New()

// File is a stored body opened for reading, or the root directory.
type File struct {
	name  string
	dir   bool
	size  int64
	mtime time.Time

	readDirCount int
	data         *bytes.Reader

	fs *Fs
}

func (f *File) Size() int64                { return f.size }
func (f *File) ModTime() time.Time         { return f.mtime }
func (f *File) IsDir() bool                { return f.dir }
func (f *File) Sys() interface{}           { return nil }
func (f *File) Stat() (os.FileInfo, error) { return f, nil }
func (f *File) Sync() error                { return nil }
func (f *File) Name() string               { return f.name }

func (f *File) Truncate(_ int64) error                 { return ErrNotSupported }
func (f *File) WriteAt(_ []byte, _ int64) (int, error) { return 0, ErrNotSupported }
func (f *File) Write(_ []byte) (int, error)            { return 0, ErrNotSupported }
func (f *File) WriteString(_ string) (int, error)      { return 0, ErrNotSupported }

func (f *File) Mode() os.FileMode {
	if f.IsDir() {
		return os.ModeDir | 0755
	}
	return 0444
}

func (f *File) Readdirnames(n int) ([]string, error) {
	fi, err := f.Readdir(n)
	names := make([]string, len(fi))
	for i, info := range fi {
		names[i] = info.Name()
	}
	return names, err
}

func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.IsDir() {
		return nil, ErrIsNotDir
	}
	bodies, err := dp.Ls(count, f.readDirCount)
	if err != nil {
		return nil, err
	}
	entries := make([]os.FileInfo, len(bodies))
	for i, body := range bodies {
		entries[i] = convertToAferoFile(body)
	}
	if count > 0 && len(entries) == 0 {
		err = io.EOF
	}
	f.readDirCount += len(entries)
	return entries, err
}

// load fetches the body data on first read.
func (f *File) load() error {
	if f.IsDir() {
		return ErrIsDir
	}
	if f.data != nil {
		return nil
	}
	data, err := dp.Data(f.name)
	if err != nil {
		return err
	}
	f.data = bytes.NewReader(data)
	return nil
}

func (f *File) Read(p []byte) (int, error) {
	if err := f.load(); err != nil {
		return 0, err
	}
	return f.data.Read(p)
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if err := f.load(); err != nil {
		return 0, err
	}
	return f.data.ReadAt(p, off)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.load(); err != nil {
		return 0, err
	}
	return f.data.Seek(offset, whence)
}

func (f *File) Close() error {
	f.data = nil
	return nil
}
