package middleware

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/felixge/httpsnoop"
)

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// maxPooledBuffer keeps one oversized response from pinning memory in the pool.
const maxPooledBuffer = 1 << 20

func acquireBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func releaseBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// bufferedWriter stands in for the live ResponseWriter while the downstream
// handler runs. Body bytes and the status code are held back until copyTo.
// Headers are shared with the live writer and committed by copyTo.
type bufferedWriter struct {
	rw   http.ResponseWriter
	live http.ResponseWriter
	buf  *bytes.Buffer

	status      int
	wroteHeader bool
	explicit    bool // status came from WriteHeader, not implied by Write
	hijacked    bool
}

func newBufferedWriter(live http.ResponseWriter, buf *bytes.Buffer) *bufferedWriter {
	bw := &bufferedWriter{live: live, buf: buf, status: http.StatusOK}
	bw.rw = httpsnoop.Wrap(live, httpsnoop.Hooks{
		WriteHeader: func(httpsnoop.WriteHeaderFunc) httpsnoop.WriteHeaderFunc {
			return bw.writeHeader
		},
		Write: func(httpsnoop.WriteFunc) httpsnoop.WriteFunc {
			return bw.write
		},
		ReadFrom: func(httpsnoop.ReadFromFunc) httpsnoop.ReadFromFunc {
			return bw.readFrom
		},
		Flush: func(httpsnoop.FlushFunc) httpsnoop.FlushFunc {
			// Nothing reaches the client before copyTo.
			return func() {}
		},
		Hijack: func(next httpsnoop.HijackFunc) httpsnoop.HijackFunc {
			return func() (net.Conn, *bufio.ReadWriter, error) {
				conn, brw, err := next()
				if err == nil {
					bw.hijacked = true
				}
				return conn, brw, err
			}
		},
	})
	return bw
}

// Writer returns the ResponseWriter handed to the downstream handler.
func (bw *bufferedWriter) Writer() http.ResponseWriter {
	return bw.rw
}

func (bw *bufferedWriter) Header() http.Header {
	return bw.live.Header()
}

func (bw *bufferedWriter) writeHeader(code int) {
	// Informational responses are not final; forward them as they happen.
	if code >= 100 && code <= 199 && code != http.StatusSwitchingProtocols {
		bw.live.WriteHeader(code)
		return
	}
	if bw.wroteHeader {
		return
	}
	bw.status = code
	bw.wroteHeader = true
	bw.explicit = true
}

func (bw *bufferedWriter) write(p []byte) (int, error) {
	bw.wroteHeader = true
	return bw.buf.Write(p)
}

func (bw *bufferedWriter) readFrom(src io.Reader) (int64, error) {
	bw.wroteHeader = true
	return bw.buf.ReadFrom(src)
}

// reset drops everything the downstream handler produced so an error
// response can take its place.
func (bw *bufferedWriter) reset(status int) {
	bw.buf.Reset()
	bw.status = status
	bw.wroteHeader = true
	bw.explicit = true
}

// copyTo commits the recorded status, the shared headers and the buffered
// body to the live writer. The live writer sees the same call sequence the
// handler made, so implied 200s still get content sniffing.
func (bw *bufferedWriter) copyTo(w http.ResponseWriter) error {
	if bw.hijacked {
		return nil
	}
	if bw.explicit {
		w.WriteHeader(bw.status)
	}
	if bw.buf.Len() == 0 {
		return nil
	}
	_, err := w.Write(bw.buf.Bytes())
	return err
}
