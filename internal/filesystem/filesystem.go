// Package filesystem exposes stored bodies as a flat afero.Fs. Every body is a
// file in the root directory named by its id. Files created through the Fs
// are buffered with rawbody and stored when closed.
package filesystem

import (
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	dp "github.com/forscht/rawbody/internal/dataprovider"
	"github.com/forscht/rawbody/pkg/locker"
	"github.com/forscht/rawbody/pkg/rawbody"
)

const RootDir = "/"

var (
	ErrIsDir        = &os.PathError{Err: errors.New("is a directory")}
	ErrIsNotDir     = &os.PathError{Err: errors.New("is not a directory")}
	ErrNotSupported = &os.PathError{Err: errors.New("fs doesn't support this operation")}
	ErrReadOnly     = os.ErrPermission
)

type Fs struct {
	cfg    rawbody.Config
	locker *locker.Locker
}

// New returns the body filesystem wrapped with logging. Uploads are limited
// and decoded according to cfg.
func New(cfg rawbody.Config) afero.Fs {
	return NewLogFs(&Fs{cfg: cfg, locker: locker.New()})
}

// id maps a path to a body id. Only direct children of the root are bodies.
func id(name string) (string, error) {
	p := path.Clean("/" + name)
	if p == RootDir {
		return "", nil
	}
	p = strings.TrimPrefix(p, "/")
	if strings.Contains(p, "/") {
		return "", os.ErrNotExist
	}
	return p, nil
}

func (fs *Fs) Name() string                        { return "BodyFs" }
func (fs *Fs) Chown(_ string, _, _ int) error      { return ErrNotSupported }
func (fs *Fs) Chmod(_ string, _ os.FileMode) error { return ErrNotSupported }
func (fs *Fs) Chtimes(_ string, _ time.Time, _ time.Time) error {
	return ErrNotSupported
}

func (fs *Fs) Mkdir(_ string, _ os.FileMode) error    { return ErrNotSupported }
func (fs *Fs) MkdirAll(_ string, _ os.FileMode) error { return ErrNotSupported }
func (fs *Fs) Rename(_, _ string) error               { return ErrNotSupported }

func (fs *Fs) Create(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
}

func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile supported flags, O_WRONLY, O_CREATE, O_TRUNC, O_RDONLY. Files
// opened for writing replace the stored body on Close.
func (fs *Fs) OpenFile(name string, flag int, _ os.FileMode) (afero.File, error) {
	if !CheckFlag(flag, os.O_WRONLY|os.O_RDONLY|os.O_CREATE|os.O_TRUNC) {
		return nil, ErrReadOnly
	}
	bid, err := id(name)
	if err != nil {
		return nil, err
	}

	if flag&os.O_WRONLY != 0 {
		if bid == "" {
			return nil, ErrIsDir
		}
		if err = checkId(bid); err != nil {
			return nil, err
		}
		return newUpload(fs, bid), nil
	}

	if bid == "" {
		return &File{name: RootDir, dir: true, fs: fs}, nil
	}
	body, err := dp.Get(bid)
	if err != nil {
		return nil, err
	}
	file := convertToAferoFile(body)
	file.fs = fs
	return file, nil
}

func (fs *Fs) Remove(name string) error {
	bid, err := id(name)
	if err != nil {
		return err
	}
	if bid == "" {
		return ErrReadOnly
	}
	fs.locker.Acquire(bid)
	defer fs.locker.Release(bid)
	return dp.Delete(bid)
}

func (fs *Fs) RemoveAll(path string) error {
	return fs.Remove(path)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	bid, err := id(name)
	if err != nil {
		return nil, err
	}
	if bid == "" {
		return &File{name: RootDir, dir: true}, nil
	}
	body, err := dp.Get(bid)
	if err != nil {
		return nil, os.ErrNotExist
	}
	return convertToAferoFile(body), nil
}

// store replaces the body stored under body.Id.
func (fs *Fs) store(body *dp.Body) error {
	fs.locker.Acquire(body.Id)
	defer fs.locker.Release(body.Id)
	if err := dp.Delete(body.Id); err != nil && !errors.Is(err, dp.ErrNotExist) {
		return err
	}
	_, err := dp.Create(body)
	return err
}

func CheckFlag(flag int, allowedFlags int) bool {
	return flag == (flag & allowedFlags)
}

func checkId(bid string) error {
	if err := validate.Struct(dp.Body{Id: bid}); err != nil {
		return &os.PathError{Op: "create", Path: bid, Err: err}
	}
	return nil
}

func convertToAferoFile(body *dp.Body) *File {
	return &File{name: body.Id, size: body.Size, mtime: body.CTime}
}
