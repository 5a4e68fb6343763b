package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/dConf/lib/store"
	"github.com/ValentinKolb/dConf/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey   byte = 1 << 0
	hasValue byte = 1 << 1
	hasTTL   byte = 1 << 2
	hasOk    byte = 1 << 3
	hasCode  byte = 1 << 4
	hasErr   byte = 1 << 5
	hasNodes byte = 1 << 6
)

// Bit flags of a single list node
const (
	nodeDir byte = 1 << 0
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	w := writer{buf: make([]byte, 2, b.sizeBytes(msg))}

	// Write message type, the flags byte is set at the end
	w.buf[0] = byte(msg.MsgType)
	var flags byte = 0

	if msg.Key != "" {
		flags |= hasKey
		w.putString(msg.Key)
	}

	// A non nil but empty value is encoded, so that "found, empty" survives the round trip
	if msg.Value != nil {
		flags |= hasValue
		w.putBytes(msg.Value)
	}

	if msg.TTL > 0 {
		flags |= hasTTL
		w.putUint64(msg.TTL)
	}

	if msg.Ok {
		flags |= hasOk
	}

	if msg.Code > 0 {
		flags |= hasCode
		w.putUint64(msg.Code)
	}

	if msg.Err != "" {
		flags |= hasErr
		w.putString(msg.Err)
	}

	if msg.Nodes != nil {
		flags |= hasNodes
		w.putUint32(uint32(len(msg.Nodes)))
		for _, node := range msg.Nodes {
			var nodeFlags byte
			if node.Dir {
				nodeFlags |= nodeDir
			}
			w.buf = append(w.buf, nodeFlags)
			w.putString(node.Key)
			w.putString(node.Value)
		}
	}

	w.buf[1] = flags
	return w.buf, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := reader{data: data, pos: 2}

	var err error
	if flags&hasKey != 0 {
		if msg.Key, err = r.string("key"); err != nil {
			return err
		}
	}

	if flags&hasValue != 0 {
		if msg.Value, err = r.bytes("value"); err != nil {
			return err
		}
	}

	if flags&hasTTL != 0 {
		if msg.TTL, err = r.uint64("ttl"); err != nil {
			return err
		}
	}

	msg.Ok = flags&hasOk != 0

	if flags&hasCode != 0 {
		if msg.Code, err = r.uint64("code"); err != nil {
			return err
		}
	}

	if flags&hasErr != 0 {
		if msg.Err, err = r.string("error"); err != nil {
			return err
		}
	}

	if flags&hasNodes != 0 {
		count, err := r.uint32("node count")
		if err != nil {
			return err
		}
		// every node needs at least 9 bytes, reject bogus counts before allocating
		if uint64(count)*9 > uint64(len(data)-r.pos) {
			return fmt.Errorf("data too short for %d nodes", count)
		}
		msg.Nodes = make([]store.Node, count)
		for i := range msg.Nodes {
			if r.pos+1 > len(data) {
				return fmt.Errorf("data too short for node flags")
			}
			msg.Nodes[i].Dir = data[r.pos]&nodeDir != 0
			r.pos++
			if msg.Nodes[i].Key, err = r.string("node key"); err != nil {
				return err
			}
			if msg.Nodes[i].Value, err = r.string("node value"); err != nil {
				return err
			}
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Key != "" {
		size += 4 + len(msg.Key) // 4 bytes for length + key string
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value) // 4 bytes for length + value bytes
	}
	if msg.TTL > 0 {
		size += 8 // uint64
	}
	if msg.Code > 0 {
		size += 8 // uint64
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err) // 4 bytes for length + error string
	}
	if msg.Nodes != nil {
		size += 4 // node count
		for _, node := range msg.Nodes {
			size += 1 + 4 + len(node.Key) + 4 + len(node.Value)
		}
	}

	return size
}

// writer appends length prefixed fields to a buffer
type writer struct {
	buf []byte
}

func (w *writer) putUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *writer) putUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *writer) putBytes(v []byte) {
	w.putUint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *writer) putString(v string) {
	w.putUint32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

// reader reads length prefixed fields and reports truncated data
type reader struct {
	data []byte
	pos  int
}

func (r *reader) uint32(field string) (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) uint64(field string) (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("data too short for %s", field)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8
	return v, nil
}

// bytes returns a copy of the next length prefixed field (never nil)
func (r *reader) bytes(field string) ([]byte, error) {
	n, err := r.uint32(field + " length")
	if err != nil {
		return nil, err
	}
	if uint64(r.pos)+uint64(n) > uint64(len(r.data)) {
		return nil, fmt.Errorf("data too short for %s data", field)
	}
	v := make([]byte, n)
	copy(v, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v, nil
}

func (r *reader) string(field string) (string, error) {
	n, err := r.uint32(field + " length")
	if err != nil {
		return "", err
	}
	if uint64(r.pos)+uint64(n) > uint64(len(r.data)) {
		return "", fmt.Errorf("data too short for %s data", field)
	}
	v := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return v, nil
}
