package serializer

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sync"

	"github.com/ValentinKolb/dConf/rpc/common"
)

// NewGOBSerializer creates a new serializer using Go's gob format. Every message
// is a self-describing gob stream, so client and server need no shared state.
func NewGOBSerializer() IRPCSerializer {
	return gobSerializerImpl{}
}

type gobSerializerImpl struct{}

var gobBuffers = sync.Pool{New: func() any { return new(bytes.Buffer) }}

func (gobSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	buf := gobBuffers.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		gobBuffers.Put(buf)
	}()

	if err := gob.NewEncoder(buf).Encode(msg); err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Deserialize replaces *msg. gob skips zero fields, so decoding into a used
// message would keep its old values.
func (gobSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var decoded common.Message
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&decoded); err != nil {
		return fmt.Errorf("invalid gob message: %w", err)
	}
	*msg = decoded
	return nil
}
