package audio

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// FormField is a plain multipart form field.
type FormField struct {
	Name  string
	Value string
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// EncodeMultipart writes fields followed by the payload as a file part named
// fileField, carrying the payload's filename and MIME type. It returns the body
// and the Content-Type header value.
func (p *Payload) EncodeMultipart(fileField string, fields ...FormField) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+quoteEscaper.Replace(fileField)+`"; filename="`+quoteEscaper.Replace(p.Filename)+`"`)
	header.Set("Content-Type", p.MIMEType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(p.Data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
