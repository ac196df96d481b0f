package stream

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/cognusion/go-osmdl/internal/diag"
	"github.com/cognusion/go-osmdl/internal/sink"
	"github.com/cognusion/go-osmdl/internal/xerrors"
	"github.com/fortytw2/leaktest"
	. "github.com/smartystreets/goconvey/convey"
)

func testOptions() Options {
	return Options{
		RetryBudget: 3,
		BackoffBase: time.Millisecond,
		Client:      http.DefaultClient,
		Loggers:     diag.NewDiscardLoggers(),
	}
}

func Test_Run(t *testing.T) {
	Convey("When the origin serves the whole body in one shot", t, func() {
		defer leaktest.Check(t)()

		body := bytes.Repeat([]byte("a"), 1000)
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusOK)
			rw.Write(body)
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		f.Close()

		fs, err := sink.OpenFile(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, int64(len(body)), fs, nil, testOptions())
		So(err, ShouldBeNil)

		got, err := os.ReadFile(f.Name())
		So(err, ShouldBeNil)
		So(got, ShouldResemble, body)
	})

	Convey("When a resumed transfer picks up from the sink's current length", t, func() {
		defer leaktest.Check(t)()

		body := bytes.Repeat([]byte("b"), 2000)
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rng := req.Header.Get("Range")
			if rng == "" {
				rw.WriteHeader(http.StatusOK)
				rw.Write(body)
				return
			}
			var start int
			parseRangeStart(rng, &start)
			rw.WriteHeader(http.StatusPartialContent)
			rw.Write(body[start:])
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-resume-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		_, err = f.Write(body[:500])
		So(err, ShouldBeNil)
		f.Close()

		fs, err := sink.OpenFileForResume(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, int64(len(body)), fs, nil, testOptions())
		So(err, ShouldBeNil)

		got, err := os.ReadFile(f.Name())
		So(err, ShouldBeNil)
		So(got, ShouldResemble, body)
	})

	Convey("When the server silently ignores the resume Range and sends the full body", t, func() {
		defer leaktest.Check(t)()

		body := bytes.Repeat([]byte("c"), 300)
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			// Always ignores Range and returns 200 with the full body.
			rw.WriteHeader(http.StatusOK)
			rw.Write(body)
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-ignored-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		_, err = f.Write(bytes.Repeat([]byte("X"), 100))
		So(err, ShouldBeNil)
		f.Close()

		fs, err := sink.OpenFileForResume(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, int64(len(body)), fs, nil, testOptions())
		So(err, ShouldBeNil)

		got, err := os.ReadFile(f.Name())
		So(err, ShouldBeNil)
		So(got, ShouldResemble, body)
	})

	Convey("When resumeFrom already equals the known total size and the server 416s", t, func() {
		defer leaktest.Check(t)()

		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		}))
		defer server.Close()

		body := bytes.Repeat([]byte("d"), 64)
		f, err := os.CreateTemp("", "stream-complete-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		_, err = f.Write(body)
		So(err, ShouldBeNil)
		f.Close()

		fs, err := sink.OpenFileForResume(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, int64(len(body)), fs, nil, testOptions())
		So(err, ShouldBeNil)
	})

	Convey("When a transient mid-body failure is followed by a successful resume", t, func() {
		defer leaktest.Check(t)()

		body := bytes.Repeat([]byte("e"), 4000)
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			attempts++
			rng := req.Header.Get("Range")
			start := 0
			if rng != "" {
				parseRangeStart(rng, &start)
			}
			if attempts == 1 {
				// Write partial content then cut the connection short.
				rw.Header().Set("Content-Length", "4000")
				rw.WriteHeader(http.StatusOK)
				rw.Write(body[:1000])
				hj, ok := rw.(http.Hijacker)
				if ok {
					conn, _, _ := hj.Hijack()
					conn.Close()
				}
				return
			}
			rw.WriteHeader(http.StatusPartialContent)
			rw.Write(body[start:])
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-flaky-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		f.Close()

		fs, err := sink.OpenFile(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, int64(len(body)), fs, nil, testOptions())
		So(err, ShouldBeNil)

		got, err := os.ReadFile(f.Name())
		So(err, ShouldBeNil)
		So(got, ShouldResemble, body)
	})

	Convey("When a non-retriable status is returned", t, func() {
		defer leaktest.Check(t)()

		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-403-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		f.Close()

		fs, err := sink.OpenFile(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		err = Run(context.Background(), server.URL, 100, fs, nil, testOptions())
		So(err, ShouldNotBeNil)
		e, ok := xerrors.AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, xerrors.CodeHTTPStatus)
	})

	Convey("When the context is already cancelled", t, func() {
		defer leaktest.Check(t)()

		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			rw.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f, err := os.CreateTemp("", "stream-cancel-*")
		So(err, ShouldBeNil)
		defer os.Remove(f.Name())
		f.Close()

		fs, err := sink.OpenFile(f.Name(), sink.Force, nil)
		So(err, ShouldBeNil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err = Run(ctx, server.URL, 100, fs, nil, testOptions())
		So(xerrors.IsCode(err, xerrors.CodeCancelled), ShouldBeTrue)
	})
}

// parseRangeStart extracts the start offset from a "bytes=N-" header value
// for the test server's own bookkeeping; it is not part of the package
// under test.
func parseRangeStart(header string, out *int) (int, error) {
	const prefix = "bytes="
	v := header[len(prefix):]
	dash := bytes.IndexByte([]byte(v), '-')
	if dash < 0 {
		return 0, nil
	}
	n := 0
	for _, c := range v[:dash] {
		n = n*10 + int(c-'0')
	}
	*out = n
	return n, nil
}
