package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickContainer(t *testing.T) {
	tests := []struct {
		mime string
		want Container
	}{
		{"audio/mp3", MP3},
		{"audio/mpeg; codecs=mp3", MP3},
		{"audio/wav", WAV},
		{"audio/x-wav", WAV},
		{"audio/ogg;codecs=opus", OGG},
		{"audio/oga", OGG},
		{"audio/webm;codecs=opus", WebM},
		{"audio/mp4", M4A},
		{"audio/x-m4a", M4A},
		{"audio/aac", M4A},
		{"AUDIO/WEBM", WebM},
		{"", M4A},
		{"application/octet-stream", M4A},
	}
	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, PickContainer(tt.mime))
		})
	}
}

func TestKnownContainer(t *testing.T) {
	c, ok := KnownContainer("audio/webm")
	assert.True(t, ok)
	assert.Equal(t, WebM, c)

	c, ok = KnownContainer("video/quicktime")
	assert.False(t, ok)
	assert.Equal(t, DefaultContainer, c)
}

func TestNormalizeBase64(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already standard", "QUJD", "QUJD"},
		{"data url prefix", "data:audio/m4a;base64,QUJD", "QUJD"},
		{"comma without base64 kept", "abc,QUJD", "abc,QUJD"},
		{"url safe alphabet", "-_-_", "+/+/"},
		{"whitespace", "  QU\nJD\t ", "QUJD"},
		{"pad two", "QUI", "QUI="},
		{"pad one", "QQ", "QQ=="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeBase64(tt.in))
		})
	}
}

func TestDecodeBase64_EquivalentToStandard(t *testing.T) {
	// bytes chosen so the standard encoding contains '+' and '/'
	raw := bytes.Repeat([]byte{0xfb, 0xff, 0xbf, 0x01, 0x02}, 61)
	standard := base64.StdEncoding.EncodeToString(raw)
	require.True(t, strings.ContainsAny(standard, "+/"))

	mangled := base64.RawURLEncoding.EncodeToString(raw)
	mangled = "data:audio/mp4;base64," + mangled[:40] + "\n" + mangled[40:]

	want, err := base64.StdEncoding.DecodeString(standard)
	require.NoError(t, err)

	got, err := DecodeBase64(mangled)
	require.NoError(t, err)
	assert.Equal(t, len(want), len(got))
	assert.Equal(t, want, got)
}

func TestDecodeBase64_Invalid(t *testing.T) {
	_, err := DecodeBase64("!!!!")
	assert.Error(t, err)
}

func TestFromBase64(t *testing.T) {
	raw := bytes.Repeat([]byte{1, 2, 3, 4}, 100)
	b64 := base64.StdEncoding.EncodeToString(raw)

	p, err := FromBase64(b64, "audio/aac", 0)
	require.NoError(t, err)
	assert.Equal(t, M4A, p.Container)
	assert.Equal(t, raw, p.Data)
	assert.False(t, p.TooSmall())

	p, err = FromBase64(b64, "audio/L16; rate=44100", 44100)
	require.NoError(t, err)
	assert.Equal(t, WAV, p.Container)
	assert.Len(t, p.Data, 44+len(raw))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(p.Data[24:28]))
}

func TestPayload_TooSmall(t *testing.T) {
	assert.True(t, (&Payload{}).TooSmall())
	assert.True(t, (&Payload{Data: make([]byte, MinPayloadBytes-1)}).TooSmall())
	assert.False(t, (&Payload{Data: make([]byte, MinPayloadBytes)}).TooSmall())
}

func TestIsPCM(t *testing.T) {
	assert.True(t, IsPCM("audio/pcm"))
	assert.True(t, IsPCM("audio/L16;rate=16000"))
	assert.True(t, IsPCM("audio/raw"))
	assert.False(t, IsPCM("audio/wav"))
	assert.False(t, IsPCM(""))
}
