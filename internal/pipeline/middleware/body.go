package middleware

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// ReadRequestBody reads r.Body in full and installs a replacement that yields
// the same bytes from the start, so the next reader is unaffected. A read
// error is replayed to the next reader as well. A missing body reads as "".
func ReadRequestBody(r *http.Request) (string, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}

	data, err := io.ReadAll(r.Body)
	var replay io.Reader = bytes.NewReader(data)
	if err != nil {
		replay = io.MultiReader(replay, errReader{err: err})
	}
	r.Body = &replayBody{Reader: replay, closer: r.Body}

	if err != nil {
		return string(data), fmt.Errorf("reading request body: %w", err)
	}
	return string(data), nil
}

// ResponseBody returns the buffered response as text without consuming it.
func ResponseBody(buf *bytes.Buffer) string {
	if buf == nil {
		return ""
	}
	return buf.String()
}

type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}

type errReader struct {
	err error
}

func (e errReader) Read([]byte) (int, error) {
	return 0, e.err
}
