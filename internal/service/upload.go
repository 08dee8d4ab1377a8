package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"programhub/internal/artifact"
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// checkUpload validates an upload against the limits for kind and prepares
// its body: the stream is capped at the limit and thumbnails are sniffed.
func checkUpload(ve *ValidationError, field string, up *artifact.Upload, kind artifact.Kind) {
	if up == nil || up.Body == nil || up.Size == 0 {
		ve.add(field, "is required")
		return
	}
	max := kind.MaxSize()
	if up.Size > max {
		ve.add(field, fmt.Sprintf("must not exceed %d KiB", max>>10))
		return
	}
	up.Body = &capReader{r: up.Body, remaining: max}

	if kind == artifact.KindThumbnail {
		br := bufio.NewReaderSize(up.Body, 512)
		head, _ := br.Peek(512)
		ct := http.DetectContentType(head)
		if !strings.HasPrefix(ct, "image/") {
			ve.add(field, "must be an image")
			return
		}
		up.ContentType = ct
		up.Body = br
	}
}

// capReader fails once more than remaining bytes are read.
type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		var probe [1]byte
		n, err := c.r.Read(probe[:])
		if n > 0 {
			return 0, errUploadTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
