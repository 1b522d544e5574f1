package figma

import (
	"encoding/json"
	"fmt"

	"github.com/nmfisher/figma-mcp/internal/domain"
)

// The wire envelope is flat: params sit at the top level beside id and
// method, not nested. The plugin depends on this shape.
//
//	{"jsonrpc":"2.0","id":"create-text-0","method":"create-text","x":200,"text":"hi"}
//
// Replies come back as {"id":...,"result":...} or
// {"id":...,"error":{"message":...}}; id is the only join key.

// reserved envelope keys that params must not clobber.
var reservedKeys = [...]string{"id", "method", "jsonrpc"}

// RemoteErr is the error object of an inbound reply.
type RemoteErr struct {
	Message string `json:"message"`
}

// Reply is one decoded inbound message addressed to a pending command.
// Exactly one of Result / Err is meaningful.
type Reply struct {
	ID     string
	Result json.RawMessage
	Err    *RemoteErr
}

// EncodeCommand builds the outbound envelope for one command. Params are
// spread at the top level verbatim; a param named like an envelope key is
// rejected rather than silently overwritten.
func EncodeCommand(id, method string, params map[string]any) ([]byte, error) {
	env := make(map[string]any, len(params)+3)
	for k, v := range params {
		for _, r := range reservedKeys {
			if k == r {
				return nil, domain.NewDomainError("figma.EncodeCommand", domain.ErrInvalidParams,
					fmt.Sprintf("param %q collides with an envelope key", k))
			}
		}
		env[k] = v
	}
	env["jsonrpc"] = "2.0"
	env["id"] = id
	env["method"] = method

	data, err := json.Marshal(env)
	if err != nil {
		return nil, domain.NewDomainError("figma.EncodeCommand", domain.ErrInvalidParams, err.Error())
	}
	return data, nil
}

// inboundEnvelope tolerates unknown fields for forward compatibility.
type inboundEnvelope struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RemoteErr      `json:"error"`
}

// DecodeReply parses one inbound frame. Malformed JSON or a missing id is a
// soft failure: the returned error wraps domain.ErrIgnorableMessage and the
// frame is meant to be logged and dropped, never surfaced to a caller.
func DecodeReply(data []byte) (Reply, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", domain.ErrIgnorableMessage, err)
	}
	if env.ID == "" {
		return Reply{}, fmt.Errorf("%w: missing id", domain.ErrIgnorableMessage)
	}
	return Reply{ID: env.ID, Result: env.Result, Err: env.Error}, nil
}
