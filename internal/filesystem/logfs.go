package filesystem

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// LogFs logs every filesystem call. Failed calls are logged at error level,
// the rest at debug.
type LogFs struct {
	src    afero.Fs
	logger zerolog.Logger
}

// LogFsFile logs the lifetime of an opened file with the bytes it moved.
type LogFsFile struct {
	afero.File
	logger  zerolog.Logger
	read    int64
	written int64
}

// NewLogFs creates an instance with logging
func NewLogFs(src afero.Fs) afero.Fs {
	return &LogFs{src, log.With().Str("c", "fs").Logger()}
}

func (lf *LogFs) log(err error) *zerolog.Event {
	if err != nil {
		return lf.logger.Error().Err(err)
	}
	return lf.logger.Debug()
}

func (lf *LogFs) wrap(src afero.File, err error) (afero.File, error) {
	if err != nil {
		return nil, err
	}
	return &LogFsFile{File: src, logger: lf.logger.With().Str("name", src.Name()).Logger()}, nil
}

func (lf *LogFs) Create(name string) (afero.File, error) {
	src, err := lf.src.Create(name)
	lf.log(err).Str("name", name).Msg("CREATE")
	return lf.wrap(src, err)
}

func (lf *LogFs) Mkdir(name string, perm os.FileMode) error {
	err := lf.src.Mkdir(name, perm)
	lf.log(err).Str("name", name).Msg("MKDIR")
	return err
}

func (lf *LogFs) MkdirAll(path string, perm os.FileMode) error {
	err := lf.src.MkdirAll(path, perm)
	lf.log(err).Str("path", path).Msg("MKDIR_ALL")
	return err
}

func (lf *LogFs) Open(name string) (afero.File, error) {
	src, err := lf.src.Open(name)
	lf.log(err).Str("name", name).Msg("OPEN")
	return lf.wrap(src, err)
}

func (lf *LogFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	src, err := lf.src.OpenFile(name, flag, perm)
	lf.log(err).Str("name", name).Int("flag", flag).Msg("OPEN_FILE")
	return lf.wrap(src, err)
}

func (lf *LogFs) Remove(name string) error {
	err := lf.src.Remove(name)
	lf.log(err).Str("name", name).Msg("REMOVE")
	return err
}

func (lf *LogFs) RemoveAll(path string) error {
	err := lf.src.RemoveAll(path)
	lf.log(err).Str("path", path).Msg("REMOVE_ALL")
	return err
}

func (lf *LogFs) Rename(oldname, newname string) error {
	err := lf.src.Rename(oldname, newname)
	lf.log(err).Str("name", oldname).Str("newname", newname).Msg("RENAME")
	return err
}

func (lf *LogFs) Stat(name string) (os.FileInfo, error) {
	info, err := lf.src.Stat(name)
	// missing files are routine for FTP clients
	if err != nil && os.IsNotExist(err) {
		lf.logger.Debug().Str("name", name).Err(err).Msg("STAT")
	} else {
		lf.log(err).Str("name", name).Msg("STAT")
	}
	return info, err
}

func (lf *LogFs) Name() string {
	return lf.src.Name()
}

func (lf *LogFs) Chmod(name string, mode os.FileMode) error {
	return lf.src.Chmod(name, mode)
}

func (lf *LogFs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return lf.src.Chtimes(name, atime, mtime)
}

func (lf *LogFs) Chown(name string, uid int, gid int) error {
	return lf.src.Chown(name, uid, gid)
}

func (lff *LogFsFile) Read(p []byte) (int, error) {
	n, err := lff.File.Read(p)
	lff.read += int64(n)
	return n, err
}

func (lff *LogFsFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := lff.File.ReadAt(p, off)
	lff.read += int64(n)
	return n, err
}

func (lff *LogFsFile) Write(p []byte) (int, error) {
	n, err := lff.File.Write(p)
	lff.written += int64(n)
	if err != nil {
		lff.logger.Error().Err(err).Int64("written", lff.written).Msg("WRITE")
	}
	return n, err
}

func (lff *LogFsFile) WriteString(s string) (int, error) {
	return lff.Write([]byte(s))
}

func (lff *LogFsFile) Close() error {
	err := lff.File.Close()
	ev := lff.logger.Debug()
	if err != nil {
		ev = lff.logger.Error().Err(err)
	}
	ev.Int64("read", lff.read).Int64("written", lff.written).Msg("CLOSE")
	return err
}
