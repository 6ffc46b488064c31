package tfpubsub

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/go-digitaltwin/tf2"
)

// Message is a batch of transforms published together.
type Message struct {
	Transforms []tf2.TransformStamped
}

// Metadata keys set on every published message.
const (
	// MetadataAuthority names the publisher of the transforms. Listeners record
	// it as the authority of each edge the message writes.
	MetadataAuthority = "authority"
	// MetadataChildFrames lists the child frames of the message, comma
	// separated, so brokers can partition the stream by frame.
	MetadataChildFrames = "childFrames"
)

// Encode gob-encodes m.
func (m Message) Encode() ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(m); err != nil {
		return nil, fmt.Errorf("encode gob: %w", err)
	}
	return b.Bytes(), nil
}

// DecodeMessage decodes a gob-encoded Message from p.
func DecodeMessage(p []byte, m *Message) error {
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(m); err != nil {
		return fmt.Errorf("decode gob: %w", err)
	}
	return nil
}

// metadata returns the metadata published alongside m.
func (m Message) metadata(authority string) map[string]string {
	children := make([]string, len(m.Transforms))
	for i, t := range m.Transforms {
		children[i] = t.ChildFrameID
	}
	md := map[string]string{MetadataChildFrames: strings.Join(children, ",")}
	if authority != "" {
		md[MetadataAuthority] = authority
	}
	return md
}
