package httpclient

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// MultipartBody is a multipart/form-data payload. Files are streamed through
// a pipe so large audio files are never buffered whole.
type MultipartBody struct {
	Fields map[string]string
	Files  []FileField
}

// FileField is one file part. Reader takes precedence over Data.
type FileField struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
	Reader      io.Reader
}

func (m *MultipartBody) encode() (io.Reader, string) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType()
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	for k, v := range m.Fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+quoteEscaper.Replace(f.FieldName)+`"; filename="`+quoteEscaper.Replace(f.FileName)+`"`)
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		src := f.Reader
		if src == nil {
			src = strings.NewReader(string(f.Data))
		}
		if _, err := io.Copy(part, src); err != nil {
			return err
		}
	}
	return w.Close()
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
