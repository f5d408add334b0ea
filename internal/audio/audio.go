// Package audio packages captured audio into an upload-ready container.
package audio

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// MinPayloadBytes is the smallest payload worth sending for transcription.
// Anything shorter is treated as empty audio.
const MinPayloadBytes = 200

// Container is a filename and declared MIME type accepted by the transcription vendor.
type Container struct {
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
}

// Supported containers.
var (
	MP3  = Container{"audio.mp3", "audio/mp3"}
	WAV  = Container{"audio.wav", "audio/wav"}
	OGG  = Container{"audio.ogg", "audio/ogg"}
	WebM = Container{"audio.webm", "audio/webm"}
	M4A  = Container{"audio.m4a", "audio/m4a"}
)

// DefaultContainer is used when the reported type is unrecognized.
var DefaultContainer = M4A

// Payload is the output of every capture strategy.
type Payload struct {
	Data []byte
	Container
}

// TooSmall reports whether the payload is under MinPayloadBytes.
func (p *Payload) TooSmall() bool {
	return len(p.Data) < MinPayloadBytes
}

// PickContainer chooses a container by sniffing a reported MIME type
// (or any string that mentions the format).
func PickContainer(mime string) Container {
	c, _ := matchContainer(mime)
	return c
}

// KnownContainer is like PickContainer but reports whether the type matched a
// supported container rather than falling back to the default.
func KnownContainer(mime string) (Container, bool) {
	return matchContainer(mime)
}

func matchContainer(mime string) (Container, bool) {
	m := strings.ToLower(mime)
	switch {
	case strings.Contains(m, "mp3"):
		return MP3, true
	case strings.Contains(m, "wav"):
		return WAV, true
	case strings.Contains(m, "ogg"), strings.Contains(m, "oga"):
		return OGG, true
	case strings.Contains(m, "webm"):
		return WebM, true
	case strings.Contains(m, "mp4"), strings.Contains(m, "m4a"), strings.Contains(m, "aac"):
		return M4A, true
	}
	return DefaultContainer, false
}

var whitespace = regexp.MustCompile(`\s+`)

// NormalizeBase64 turns a native recorder's payload into padded standard base64:
// a data-URL prefix is stripped, whitespace removed, the URL-safe alphabet
// mapped back ('-'→'+', '_'→'/') and '=' padding added to a multiple of 4.
func NormalizeBase64(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ','); i >= 0 && strings.Contains(s[:i], "base64") {
		s = s[i+1:]
	}
	s = whitespace.ReplaceAllString(s, "")
	s = strings.NewReplacer("-", "+", "_", "/").Replace(s)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	return s
}

// DecodeBase64 normalizes and decodes a native recorder payload.
func DecodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(NormalizeBase64(s))
	if err != nil {
		return nil, fmt.Errorf("decode base64 audio: %w", err)
	}
	return data, nil
}

// IsPCM reports whether mime names raw 16-bit PCM that needs a WAV header.
func IsPCM(mime string) bool {
	m := strings.ToLower(strings.TrimSpace(mime))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	switch m {
	case "audio/l16", "audio/pcm", "audio/raw":
		return true
	}
	return false
}

// FromBase64 builds a payload from a native recorder's base64 output and
// reported type. Raw PCM is wrapped into WAV at the given sample rate.
func FromBase64(b64, mime string, sampleRate int) (*Payload, error) {
	data, err := DecodeBase64(b64)
	if err != nil {
		return nil, err
	}
	if IsPCM(mime) {
		return &Payload{Data: EncodeWAV(data, sampleRate), Container: WAV}, nil
	}
	return &Payload{Data: data, Container: PickContainer(mime)}, nil
}
