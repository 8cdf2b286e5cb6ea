// Package txnrelay bundles a global plugin that publishes one summary
// record per transaction over the event relay as the response heads back
// to the client.
package txnrelay

import (
	"context"
	"time"

	"github.com/joeydtaylor/steeze-edge/pkg/codec"
	"github.com/joeydtaylor/steeze-edge/pkg/eventrelay"
	"github.com/joeydtaylor/steeze-edge/pkg/hostapi"
	"github.com/joeydtaylor/steeze-edge/pkg/plugin"
	"go.uber.org/zap"
)

// Reporter tracks per-handle start times across requests, so it declares a
// mutex and the dispatcher serializes its invocations.
type Reporter struct {
	plugin.LockedGlobalBase
	pub     eventrelay.Publisher
	log     *zap.Logger
	timeout time.Duration
	started map[hostapi.TxnHandle]time.Time
}

func NewReporter(pub eventrelay.Publisher, log *zap.Logger) *Reporter {
	return &Reporter{
		pub:     pub,
		log:     log,
		timeout: 2 * time.Second,
		started: map[hostapi.TxnHandle]time.Time{},
	}
}

func (r *Reporter) HandleReadRequestHeadersPostRemap(t *plugin.Transaction) {
	r.started[t.Handle()] = time.Now()
}

func (r *Reporter) HandleSendResponseHeaders(t *plugin.Transaction) {
	h := t.Handle()
	rec := eventrelay.Record{
		Handle: uint64(h),
		Method: t.ClientRequest().Method(),
		Path:   t.ClientRequest().URL().Path,
	}
	if resp := t.ClientResponse(); resp != nil {
		rec.Status = resp.Status()
	}
	if start, ok := r.started[h]; ok {
		rec.Duration = time.Since(start).Milliseconds()
		delete(r.started, h)
	}

	body, err := codec.JSONStrict.Marshal(rec)
	if err != nil {
		r.log.Error("txn record encode failed", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.pub.Publish(ctx, body); err != nil {
		r.log.Error("txn record publish failed",
			zap.Uint64("handle", uint64(h)), zap.Error(err))
	}
}

// Hooks is the stage set the reporter declares at registration.
func (r *Reporter) Hooks() []plugin.HookType {
	return []plugin.HookType{
		plugin.HookReadRequestHeadersPostRemap,
		plugin.HookSendResponseHeaders,
	}
}
