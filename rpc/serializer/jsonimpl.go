package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/dConf/rpc/common"
)

// NewJSONSerializer creates a new serializer using json encoding. Values are
// base64 encoded by encoding/json, the message type is written by name.
func NewJSONSerializer() IRPCSerializer {
	return jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

func (jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return json.Marshal(msg)
}

// Deserialize replaces *msg, fields missing in b are left at their zero value
func (jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	var decoded common.Message
	if err := json.Unmarshal(b, &decoded); err != nil {
		return fmt.Errorf("invalid json message: %w", err)
	}
	*msg = decoded
	return nil
}
