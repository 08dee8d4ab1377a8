package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"programhub/internal/artifact"
	"programhub/internal/service"
)

var errCategoryID = errors.New("categories must be integer ids")

// formValue returns the first value for key, or "".
func formValue(values map[string][]string, key string) string {
	if v := values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// formPtr distinguishes an absent key (nil) from an empty value.
func formPtr(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok {
		return nil
	}
	s := ""
	if len(v) > 0 {
		s = v[0]
	}
	return &s
}

// categoryIDs reads "categories" and "categories[]", each either repeated or
// comma separated. The second result reports whether either key was sent.
func categoryIDs(values map[string][]string) ([]int64, bool, error) {
	var raw []string
	present := false
	for _, key := range []string{"categories", "categories[]"} {
		if v, ok := values[key]; ok {
			present = true
			raw = append(raw, v...)
		}
	}
	if !present {
		return nil, false, nil
	}

	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, true, errCategoryID
			}
			ids = append(ids, id)
		}
	}
	return ids, true, nil
}

func categoryValidation() *service.ValidationError {
	return &service.ValidationError{Fields: map[string]string{"categories": errCategoryID.Error()}}
}

// uploads opens multipart files and closes them together.
type uploads struct {
	files []multipart.File
}

func (u *uploads) open(form *multipart.Form, field string) (*artifact.Upload, error) {
	fhs := form.File[field]
	if len(fhs) == 0 {
		return nil, nil
	}
	fh := fhs[0]
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	u.files = append(u.files, f)
	return &artifact.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, nil
}

func (u *uploads) Close() error {
	var errs []error
	for _, f := range u.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ io.Closer = (*uploads)(nil)
