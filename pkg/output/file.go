package output

import (
	"os"
	"path/filepath"
	"syscall"

	"github.com/go-go-golems/logship/pkg/pipeline"
	"github.com/go-go-golems/logship/pkg/template"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// fileID is the filesystem identity of an open target: device plus inode,
// never the path string. Two paths that resolve to the same identity (hard
// link, rename-in-place) share one cached handle.
type fileID struct {
	dev uint64
	ino uint64
}

// File writes each record as one line to an append-mode file. Both the path
// and the message are format templates resolved per record; parent
// directories and files are created automatically. Handles are cached by
// file identity and opened at most once per identity for the sink's
// lifetime.
type File struct {
	path    template.Template
	message template.Template
	files   map[fileID]*os.File
	logger  zerolog.Logger
}

// NewFile compiles both templates; a broken template is a configuration
// error, not something to rediscover on every record.
func NewFile(pathFormat, messageFormat string) (*File, error) {
	path, err := template.Compile(pathFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "compile path format %q", pathFormat)
	}
	message, err := template.Compile(messageFormat)
	if err != nil {
		return nil, errors.Wrapf(err, "compile message format %q", messageFormat)
	}
	return &File{
		path:    path,
		message: message,
		files:   map[fileID]*os.File{},
		logger:  log.With().Str("component", "output.file").Logger(),
	}, nil
}

func (f *File) Name() string { return "file" }

// Feed resolves the path and message templates and appends the message plus
// a trailing newline. Every failure drops just this record with a warning;
// the sink keeps running.
func (f *File) Feed(record pipeline.Record) {
	path, err := f.path.Render(record)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("record", record.JSON()).
			Msg("dropping record: cannot resolve path format")
		return
	}

	handle, err := f.handleFor(path)
	if err != nil {
		f.logger.Warn().Err(err).Str("path", path).Msg("dropping record: cannot open target")
		return
	}

	message, err := f.message.Render(record)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("record", record.JSON()).
			Msg("dropping record: cannot resolve message format")
		return
	}
	message += "\n"

	n, err := handle.WriteString(message)
	if err != nil {
		f.logger.Warn().Err(err).Str("path", path).Msg("write error")
		return
	}
	f.logger.Debug().Int("bytes", n).Str("path", path).Msg("record written")
}

// handleFor ensures the target exists, obtains its filesystem identity, and
// returns the cached append handle for that identity, opening it lazily on
// first use.
func (f *File) handleFor(path string) (*os.File, error) {
	id, err := f.identify(path)
	if err != nil {
		return nil, err
	}

	if handle, ok := f.files[id]; ok {
		return handle, nil
	}

	f.logger.Info().Str("path", path).Msg("opening file for writing in append mode")
	handle, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open append")
	}
	f.files[id] = handle
	return handle, nil
}

func (f *File) identify(path string) (fileID, error) {
	fi, err := os.Stat(path)
	if os.IsNotExist(err) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fileID{}, errors.Wrap(err, "create parent directories")
			}
		}
		created, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fileID{}, errors.Wrap(err, "create file")
		}
		_ = created.Close()
		fi, err = os.Stat(path)
		if err != nil {
			return fileID{}, errors.Wrap(err, "stat created file")
		}
	} else if err != nil {
		return fileID{}, errors.Wrap(err, "stat file")
	}

	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return fileID{}, errors.Errorf("no filesystem identity for %q", path)
	}
	return fileID{dev: uint64(st.Dev), ino: st.Ino}, nil
}

// Close releases all cached handles.
func (f *File) Close() error {
	var firstErr error
	for id, handle := range f.files {
		if err := handle.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(f.files, id)
	}
	return firstErr
}
