package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognusion/go-osmdl/internal/xerrors"
	. "github.com/smartystreets/goconvey/convey"
)

func Test_FileSink(t *testing.T) {
	Convey("A fresh FileSink accepts out-of-order writes and reports length", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")

		fs, err := OpenFile(path, Force, nil)
		So(err, ShouldBeNil)

		_, err = fs.WriteAt([]byte("world"), 5)
		So(err, ShouldBeNil)
		_, err = fs.WriteAt([]byte("hello"), 0)
		So(err, ShouldBeNil)

		n, err := fs.CurrentLength()
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 10)

		So(fs.Finalize(), ShouldBeNil)

		data, rerr := os.ReadFile(path)
		So(rerr, ShouldBeNil)
		So(string(data), ShouldEqual, "helloworld")
	})

	Convey("NeverOverwrite refuses an existing non-empty destination", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")
		So(os.WriteFile(path, []byte("existing"), 0o644), ShouldBeNil)

		_, err := OpenFile(path, NeverOverwrite, nil)
		So(err, ShouldNotBeNil)

		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeOverwriteRefused)

		// File untouched.
		data, rerr := os.ReadFile(path)
		So(rerr, ShouldBeNil)
		So(string(data), ShouldEqual, "existing")
	})

	Convey("Prompt defers to the callback", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")
		So(os.WriteFile(path, []byte("existing"), 0o644), ShouldBeNil)

		_, err := OpenFile(path, Prompt, func(string) (bool, error) { return false, nil })
		So(err, ShouldNotBeNil)
		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeOverwriteRefused)

		fs, err := OpenFile(path, Prompt, func(string) (bool, error) { return true, nil })
		So(err, ShouldBeNil)
		So(fs.Finalize(), ShouldBeNil)
	})

	Convey("TruncateTo resets the visible length", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")

		fs, err := OpenFile(path, Force, nil)
		So(err, ShouldBeNil)
		_, err = fs.WriteAt([]byte("0123456789"), 0)
		So(err, ShouldBeNil)

		So(fs.TruncateTo(0), ShouldBeNil)
		n, err := fs.CurrentLength()
		So(err, ShouldBeNil)
		So(n, ShouldEqual, 0)
	})
}

func Test_StreamSink(t *testing.T) {
	Convey("A StreamSink accepts only sequential writes", t, func() {
		var buf bytes.Buffer
		s := NewStream(&buf)

		_, err := s.WriteAt([]byte("hello"), 0)
		So(err, ShouldBeNil)
		_, err = s.WriteAt([]byte("world"), 5)
		So(err, ShouldBeNil)
		So(buf.String(), ShouldEqual, "helloworld")
	})

	Convey("Out-of-order writes fail with Io", t, func() {
		var buf bytes.Buffer
		s := NewStream(&buf)

		_, err := s.WriteAt([]byte("world"), 5)
		So(err, ShouldNotBeNil)
		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeIO)
	})

	Convey("SeekTo and TruncateTo fail except a no-op SeekTo to the current length", t, func() {
		var buf bytes.Buffer
		s := NewStream(&buf)

		So(s.SeekTo(0), ShouldBeNil)
		So(s.TruncateTo(0), ShouldNotBeNil)

		_, err := s.WriteAt([]byte("x"), 0)
		So(err, ShouldBeNil)
		So(s.SeekTo(5), ShouldNotBeNil)
	})
}
