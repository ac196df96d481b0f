package osmdl

import (
	"context"
	"crypto/md5"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// rangeServer serves body honoring Range: bytes=A-B with 206.
func rangeServer(body []byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rng := req.Header.Get("Range")
		if rng == "" {
			rw.Header().Set("Content-Length", strconv.Itoa(len(body)))
			rw.Header().Set("Accept-Ranges", "bytes")
			if req.Method == http.MethodHead {
				return
			}
			rw.Write(body)
			return
		}
		start, end := parseRange(rng, len(body))
		rw.Header().Set("Content-Range", "bytes 0-0/0")
		rw.WriteHeader(http.StatusPartialContent)
		if req.Method != http.MethodHead {
			rw.Write(body[start : end+1])
		}
	}))
}

func parseRange(header string, total int) (start, end int) {
	v := strings.TrimPrefix(header, "bytes=")
	parts := strings.SplitN(v, "-", 2)
	start, _ = strconv.Atoi(parts[0])
	if len(parts) > 1 && parts[1] != "" {
		end, _ = strconv.Atoi(parts[1])
	} else {
		end = total - 1
	}
	if end >= total {
		end = total - 1
	}
	return start, end
}

func Test_transfer(t *testing.T) {
	Convey("A full end-to-end transfer against a ranges-supporting origin succeeds", t, func() {
		body := make([]byte, 1048576)
		for i := range body {
			body[i] = byte(i % 200)
		}
		server := rangeServer(body)
		defer server.Close()

		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")

		err := transfer(context.Background(), server.URL, "out.pbf", path, DefaultOptions().normalize(), nil)
		So(err, ShouldBeNil)

		got, rerr := os.ReadFile(path)
		So(rerr, ShouldBeNil)
		So(md5.Sum(got), ShouldResemble, md5.Sum(body))
	})

	Convey("NeverOverwrite refuses an existing non-empty destination", t, func() {
		server := rangeServer([]byte("hello world"))
		defer server.Close()

		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")
		So(os.WriteFile(path, []byte("already here"), 0o644), ShouldBeNil)

		opts := DefaultOptions().normalize()
		opts.Overwrite = NeverOverwrite

		err := transfer(context.Background(), server.URL, "out.pbf", path, opts, nil)
		So(err, ShouldNotBeNil)
		e, ok := AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, CodeOverwriteRefused)
	})

	Convey("Cancellation surfaces Cancelled", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			cancel()
		}))
		defer server.Close()

		dir := t.TempDir()
		path := filepath.Join(dir, "out.pbf")

		err := transfer(ctx, server.URL, "out.pbf", path, DefaultOptions().normalize(), nil)
		So(err, ShouldNotBeNil)
	})
}

func Test_Get_unknown_source(t *testing.T) {
	Convey("Getting an unknown source fails with CodeSourceNotFound", t, func() {
		err := Get(context.Background(), "not-a-real-place", t.TempDir()+"/x")
		So(err, ShouldNotBeNil)
		e, ok := AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, CodeSourceNotFound)
	})
}

func Test_GetStream_unknown_source(t *testing.T) {
	Convey("GetStream on an unknown source fails before any network I/O", t, func() {
		_, err := GetStream(context.Background(), "still-not-a-real-place")
		So(err, ShouldNotBeNil)
		e, ok := AsError(err)
		So(ok, ShouldBeTrue)
		So(e.Code, ShouldEqual, CodeSourceNotFound)
	})
}
