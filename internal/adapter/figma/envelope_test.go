package figma

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmfisher/figma-mcp/internal/domain"
)

func TestEncodeCommandFlatShape(t *testing.T) {
	data, err := EncodeCommand("create-rectangle-0", "create-rectangle", map[string]any{
		"x": 100, "y": 200,
		"fills": []any{map[string]any{"type": "SOLID"}},
	})
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))

	// Params sit beside id/method at the top level, not nested.
	assert.Equal(t, "2.0", env["jsonrpc"])
	assert.Equal(t, "create-rectangle-0", env["id"])
	assert.Equal(t, "create-rectangle", env["method"])
	assert.Equal(t, float64(100), env["x"])
	assert.Equal(t, float64(200), env["y"])
	assert.NotContains(t, env, "params")
}

func TestEncodeCommandEmptyParams(t *testing.T) {
	data, err := EncodeCommand("figma-ping-3", "figma-ping", nil)
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Len(t, env, 3) // jsonrpc, id, method only
}

func TestEncodeCommandRejectsReservedKeys(t *testing.T) {
	for _, key := range []string{"id", "method", "jsonrpc"} {
		_, err := EncodeCommand("x-0", "x", map[string]any{key: "clobber"})
		assert.ErrorIs(t, err, domain.ErrInvalidParams, "key %q", key)
	}
}

func TestDecodeReplySuccess(t *testing.T) {
	reply, err := DecodeReply([]byte(`{"id":"echo-0","result":{"msg":"hi","nested":[1,2,{"a":true}]}}`))
	require.NoError(t, err)

	assert.Equal(t, "echo-0", reply.ID)
	assert.Nil(t, reply.Err)
	assert.JSONEq(t, `{"msg":"hi","nested":[1,2,{"a":true}]}`, string(reply.Result))
}

func TestDecodeReplyError(t *testing.T) {
	reply, err := DecodeReply([]byte(`{"id":"echo-0","error":{"message":"boom"}}`))
	require.NoError(t, err)

	assert.Equal(t, "echo-0", reply.ID)
	require.NotNil(t, reply.Err)
	assert.Equal(t, "boom", reply.Err.Message)
}

func TestDecodeReplyIgnoresUnknownFields(t *testing.T) {
	reply, err := DecodeReply([]byte(`{"id":"a-1","result":1,"extra":"field","v":9}`))
	require.NoError(t, err)
	assert.Equal(t, "a-1", reply.ID)
}

func TestDecodeReplySoftFailures(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed json", `{"id":`},
		{"not an object", `[1,2,3]`},
		{"missing id", `{"result":{}}`},
		{"empty id", `{"id":"","result":{}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeReply([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, IsIgnorable(err), "error should be ignorable: %v", err)
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	// A peer-compatible decoder sees id, method and the original params.
	data, err := EncodeCommand("echo-7", "echo", map[string]any{"msg": "hi"})
	require.NoError(t, err)

	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "echo-7", env["id"])
	assert.Equal(t, "echo", env["method"])
	assert.Equal(t, "hi", env["msg"])

	// And a success reply decodes back to the exact result value.
	reply, err := DecodeReply([]byte(`{"id":"echo-7","result":{"msg":"hi"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"msg":"hi"}`, string(reply.Result))
}
