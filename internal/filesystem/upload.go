package filesystem

import (
	"errors"
	"mime"
	"os"
	"path"
	"sync"
	"time"

	dp "github.com/forscht/rawbody/internal/dataprovider"
	"github.com/forscht/rawbody/pkg/ns"
	"github.com/forscht/rawbody/pkg/rawbody"
	"github.com/forscht/rawbody/pkg/stream"
)

// Upload is a file opened for writing. Written bytes are fed to a rawbody
// collection as they arrive; Close ends the collection and stores the body.
// A write that takes the upload past the configured limit fails with the
// collection error, and nothing is stored.
type Upload struct {
	name   string
	fs     *Fs
	e      *stream.Emitter
	future *rawbody.Future

	mu      sync.Mutex
	written int64
	closed  bool
}

func newUpload(fs *Fs, name string) *Upload {
	e := stream.NewEmitter()
	return &Upload{
		name:   name,
		fs:     fs,
		e:      e,
		future: rawbody.Collect(e, fs.cfg.Options()...),
	}
}

// failed returns the collection error once the collection settled early.
func (u *Upload) failed() error {
	select {
	case <-u.future.Done():
		_, err := u.future.Result()
		return err
	default:
		return nil
	}
}

func (u *Upload) Write(p []byte) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return 0, os.ErrClosed
	}
	if err := u.failed(); err != nil {
		return 0, err
	}
	if _, err := u.e.Write(p); err != nil {
		if errors.Is(err, stream.ErrPaused) {
			if ferr := u.failed(); ferr != nil {
				return 0, ferr
			}
		}
		return 0, err
	}
	// the emitter delivers inline, so a breach caused by p is already settled
	if err := u.failed(); err != nil {
		return 0, err
	}
	u.written += int64(len(p))
	return len(p), nil
}

func (u *Upload) WriteString(s string) (int, error) {
	return u.Write([]byte(s))
}

func (u *Upload) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true

	u.e.End()
	_ = u.e.Close()
	<-u.future.Done()
	body, err := u.future.Result()
	if err != nil {
		return err
	}

	return u.fs.store(&dp.Body{
		Id:          u.name,
		ContentType: ns.NullString(mime.TypeByExtension(path.Ext(u.name))),
		Encoding:    ns.NullString(body.Encoding()),
		Data:        body.Bytes(),
	})
}

func (u *Upload) Name() string               { return u.name }
func (u *Upload) Sync() error                { return nil }
func (u *Upload) Truncate(_ int64) error     { return ErrNotSupported }
func (u *Upload) Stat() (os.FileInfo, error) { return u, nil }

func (u *Upload) Read(_ []byte) (int, error)             { return 0, ErrNotSupported }
func (u *Upload) ReadAt(_ []byte, _ int64) (int, error)  { return 0, ErrNotSupported }
func (u *Upload) WriteAt(_ []byte, _ int64) (int, error) { return 0, ErrNotSupported }
func (u *Upload) Seek(_ int64, _ int) (int64, error)     { return 0, ErrNotSupported }
func (u *Upload) Readdir(_ int) ([]os.FileInfo, error)   { return nil, ErrIsNotDir }
func (u *Upload) Readdirnames(_ int) ([]string, error)   { return nil, ErrIsNotDir }

func (u *Upload) Size() int64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.written
}
func (u *Upload) Mode() os.FileMode  { return 0644 }
func (u *Upload) ModTime() time.Time { return time.Now() }
func (u *Upload) IsDir() bool        { return false }
func (u *Upload) Sys() interface{}   { return nil }
