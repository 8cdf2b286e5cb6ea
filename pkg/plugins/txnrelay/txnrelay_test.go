package txnrelay

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/joeydtaylor/steeze-edge/pkg/codec"
	"github.com/joeydtaylor/steeze-edge/pkg/eventrelay"
	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturePublisher struct {
	bodies [][]byte
}

func (c *capturePublisher) Publish(_ context.Context, body []byte) error {
	c.bodies = append(c.bodies, body)
	return nil
}

func TestReporter_PublishesOneRecordPerTransaction(t *testing.T) {
	host := hostapi.NewFakeHost()
	host.SetClientRequest(1, hostapi.RawMessage{
		Method: "GET", URI: "/cart?step=2", Major: 1, Minor: 1, Header: http.Header{},
	})
	host.SetClientResponse(1, hostapi.RawMessage{Status: 503, Reason: "Service Unavailable"})
	txn := plugin.NewTransaction(host, 1, zap.NewNop())
	txn.InitClientResponse()

	pub := &capturePublisher{}
	rep := NewReporter(pub, zap.NewNop())

	rep.HandleReadRequestHeadersPostRemap(txn)
	time.Sleep(5 * time.Millisecond)
	rep.HandleSendResponseHeaders(txn)

	require.Len(t, pub.bodies, 1)
	var rec eventrelay.Record
	require.NoError(t, codec.JSONStrict.Unmarshal(pub.bodies[0], &rec))
	assert.Equal(t, uint64(1), rec.Handle)
	assert.Equal(t, "GET", rec.Method)
	assert.Equal(t, "/cart", rec.Path)
	assert.Equal(t, 503, rec.Status)
	assert.GreaterOrEqual(t, rec.Duration, int64(5))

	// Start-time bookkeeping must not leak across transactions.
	assert.Empty(t, rep.started)
}

func TestReporter_NoStartObservedStillPublishes(t *testing.T) {
	host := hostapi.NewFakeHost()
	host.SetClientRequest(2, hostapi.RawMessage{Method: "POST", URI: "/submit", Major: 1, Minor: 1})
	txn := plugin.NewTransaction(host, 2, zap.NewNop())

	pub := &capturePublisher{}
	rep := NewReporter(pub, zap.NewNop())
	rep.HandleSendResponseHeaders(txn)

	require.Len(t, pub.bodies, 1)
	var rec eventrelay.Record
	require.NoError(t, codec.JSONStrict.Unmarshal(pub.bodies[0], &rec))
	assert.Equal(t, "POST", rec.Method)
	assert.Zero(t, rec.Duration)
	assert.Zero(t, rec.Status)
}

func TestReporter_BookkeepingDrainsOnErrorResponses(t *testing.T) {
	pub := &capturePublisher{}
	rep := NewReporter(pub, zap.NewNop())

	// Host-generated error responses (unreachable upstream) still reach
	// send-response-headers; the start-time map must drain every time.
	for i := 1; i <= 3; i++ {
		h := hostapi.TxnHandle(i)
		host := hostapi.NewFakeHost()
		host.SetClientRequest(h, hostapi.RawMessage{Method: "GET", URI: "/out", Major: 1, Minor: 1})
		host.SetClientResponse(h, hostapi.RawMessage{Status: 502, Reason: "Bad Gateway"})
		txn := plugin.NewTransaction(host, h, zap.NewNop())
		txn.InitClientResponse()

		rep.HandleReadRequestHeadersPostRemap(txn)
		rep.HandleSendResponseHeaders(txn)
	}

	assert.Empty(t, rep.started)
	require.Len(t, pub.bodies, 3)
	var rec eventrelay.Record
	require.NoError(t, codec.JSONStrict.Unmarshal(pub.bodies[2], &rec))
	assert.Equal(t, 502, rec.Status)
}

func TestReporter_DeclaresMutex(t *testing.T) {
	rep := NewReporter(&capturePublisher{}, zap.NewNop())
	assert.NotNil(t, rep.Mutex())
	assert.Len(t, rep.Hooks(), 2)
}
