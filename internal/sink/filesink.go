package sink

import (
	"fmt"
	"os"

	"github.com/cognusion/go-osmdl/internal/xerrors"
)

// FileSink is a random-access destination backed by an *os.File.
type FileSink struct {
	path string
	file *os.File
}

// OpenFile opens path according to policy (spec §4.3):
//
//   - NeverOverwrite fails with xerrors.OverwriteRefused if path exists.
//   - Prompt calls onPrompt(path) when path exists; a false result fails
//     with xerrors.OverwriteRefused, and an error from onPrompt is returned
//     as xerrors.IO.
//   - Force truncates any existing content unconditionally.
//
// An existing but empty file counts as not existing and is opened as new.
//
// onPrompt may be nil, in which case Prompt behaves like NeverOverwrite
// (there is no calling layer to ask).
func OpenFile(path string, policy OverwritePolicy, onPrompt PromptFunc) (*FileSink, error) {
	exists, err := fileExists(path)
	if err != nil {
		return nil, xerrors.IO(err)
	}

	if exists {
		switch policy {
		case NeverOverwrite:
			return nil, xerrors.OverwriteRefusedFor(path)
		case Prompt:
			if onPrompt == nil {
				return nil, xerrors.OverwriteRefusedFor(path)
			}
			ok, perr := onPrompt(path)
			if perr != nil {
				return nil, xerrors.IO(perr)
			}
			if !ok {
				return nil, xerrors.OverwriteRefusedFor(path)
			}
		case Force:
			// fall through to truncating open below
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, xerrors.IO(err)
	}
	return &FileSink{path: path, file: f}, nil
}

// OpenFileForResume opens path for a resumable transfer without truncating:
// an existing partial download's bytes are preserved so the Sequential
// Stream can resume from CurrentLength(). A destination that doesn't exist
// (or is empty) is created without consulting the policy; the overwrite
// policy applies only when a non-empty destination already exists.
func OpenFileForResume(path string, policy OverwritePolicy, onPrompt PromptFunc) (*FileSink, error) {
	exists, err := fileExists(path)
	if err != nil {
		return nil, xerrors.IO(err)
	}

	if !exists {
		f, ferr := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if ferr != nil {
			return nil, xerrors.IO(ferr)
		}
		return &FileSink{path: path, file: f}, nil
	}

	switch policy {
	case NeverOverwrite:
		return nil, xerrors.OverwriteRefusedFor(path)
	case Prompt:
		if onPrompt == nil {
			return nil, xerrors.OverwriteRefusedFor(path)
		}
		ok, perr := onPrompt(path)
		if perr != nil {
			return nil, xerrors.IO(perr)
		}
		if !ok {
			return nil, xerrors.OverwriteRefusedFor(path)
		}
	case Force:
		// resume is still attempted; Force here means "don't ask", not
		// "truncate" — truncation would defeat resume entirely.
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, xerrors.IO(err)
	}
	return &FileSink{path: path, file: f}, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Size() > 0, nil
}

// WriteAt implements Sink.
func (s *FileSink) WriteAt(p []byte, off int64) (int, error) {
	n, err := s.file.WriteAt(p, off)
	if err != nil {
		return n, xerrors.IO(fmt.Errorf("write at %d: %w", off, err))
	}
	return n, nil
}

// SeekTo implements Sink.
func (s *FileSink) SeekTo(off int64) error {
	if _, err := s.file.Seek(off, 0); err != nil {
		return xerrors.IO(err)
	}
	return nil
}

// TruncateTo implements Sink.
func (s *FileSink) TruncateTo(size int64) error {
	if err := s.file.Truncate(size); err != nil {
		return xerrors.IO(err)
	}
	if _, err := s.file.Seek(size, 0); err != nil {
		return xerrors.IO(err)
	}
	return nil
}

// CurrentLength implements Sink.
func (s *FileSink) CurrentLength() (int64, error) {
	info, err := s.file.Stat()
	if err != nil {
		return 0, xerrors.IO(err)
	}
	return info.Size(), nil
}

// Finalize flushes and fsyncs the file durably before returning.
func (s *FileSink) Finalize() error {
	if err := s.file.Sync(); err != nil {
		return xerrors.IO(err)
	}
	if err := s.file.Close(); err != nil {
		return xerrors.IO(err)
	}
	return nil
}

// Path returns the destination path this sink writes to.
func (s *FileSink) Path() string {
	return s.path
}
