package stdio

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/aidis/internal/aidiserr"
	"github.com/fyrsmithlabs/aidis/internal/catalog"
	"github.com/fyrsmithlabs/aidis/internal/dispatcher"
	"github.com/fyrsmithlabs/aidis/internal/orchestrator"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cat := catalog.New()
	orch := orchestrator.New(nil)
	d := dispatcher.New(cat, orch, zap.NewNop())
	return New(d, cat, nil, zap.NewNop(), "test-session")
}

func TestRun_InitializeReturnsServerInfo(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"initialize"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Contains(t, out.String(), "aidis")
}

func TestRun_ToolsListReturnsCatalog(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"tools/list"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))
	assert.Contains(t, out.String(), "aidis_ping")
}

func TestRun_DispatchesPingAndWritesResult(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"tools/call","params":{"name":"aidis_ping","arguments":{"message":"hi"}}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Contains(t, out.String(), "hi")
}

func TestRun_UnknownToolReturnsJSONRPCError(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"2","method":"tools/call","params":{"name":"does_not_exist"}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
}

func TestRun_UnknownMethodReturnsJSONRPCError(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"2","method":"does_not_exist"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, aidiserr.RPCMethodNotFound, resp.Error.Code)
}

func TestRun_MalformedJSONReturnsParseError(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader("not json\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp errorResponse
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32700, resp.Error.Code)
}

func TestRun_ResourcesListReturnsEmptyList(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"resources/list"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))
	assert.Contains(t, out.String(), `"resources":[]`)
}

func TestRun_ResourcesReadDispatchesURIAsToolName(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","id":"1","method":"resources/read","params":{"uri":"aidis_ping"}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))

	var resp response
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(out.Bytes()), &resp))
	assert.Equal(t, "2.0", resp.JSONRPC)
}

func TestRun_NotificationReceivesNoResponse(t *testing.T) {
	s := newTestServer(t)
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n")
	var out bytes.Buffer

	require.NoError(t, s.Run(context.Background(), in, &out))
	assert.Empty(t, out.String())
}

func TestIsNotification_RecognizesPrefix(t *testing.T) {
	assert.True(t, isNotification("notifications/initialized"))
	assert.False(t, isNotification("aidis_ping"))
}
