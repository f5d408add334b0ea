package ops

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/teamtalk/talktome/internal/audio"
	"github.com/teamtalk/talktome/internal/openai"
)

// Gateway is the vendor API used by the AI operations. *openai.Client implements it.
type Gateway interface {
	Transcribe(ctx context.Context, p *audio.Payload) (string, error)
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
	Speak(ctx context.Context, req openai.SpeechRequest) ([]byte, error)
}

var _ Gateway = (*openai.Client)(nil)

// Optional is a PATCH field. Set reports whether the field was supplied;
// Value is nil when it was supplied as null.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns a set Optional holding null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// UnmarshalJSON is only invoked for keys present in the document.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// now is the clock used for timestamps; tests may replace it.
var now = func() time.Time {
	return time.Now().UTC()
}

// entropy is shared so IDs minted within one millisecond still sort in creation order.
var entropy = &ulid.LockedMonotonicReader{MonotonicReader: ulid.Monotonic(rand.Reader, 0)}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// cleanOptionalString trims s and maps blank to nil.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
