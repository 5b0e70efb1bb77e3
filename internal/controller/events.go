// internal/controller/events.go
package controller

import (
	"strings"

	"go.uber.org/zap"

	"light-controller-service/internal/framing"
	"light-controller-service/internal/model"
)

func formatHex(b []byte) string {
	return framing.FormatHex(b)
}

// disconnectHints are error substrings that mean the peer is gone
var disconnectHints = []string{"eof", "reset", "broken pipe", "disconnect", "closed"}

// impliesDisconnect reports whether a transport error message signals a lost link
func impliesDisconnect(message string) bool {
	lower := strings.ToLower(message)
	for _, hint := range disconnectHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// handleReceive runs on the transport reader goroutine. BYTE templates with a
// framing scheme are reassembled first; everything else is published per chunk.
func (r *Runtime) handleReceive(peer string, data []byte) {
	id := r.InstanceID()
	r.logger.LogRxFrame(peer, formatHex(data))

	params := r.tpl.Info.ByteParams
	framed := r.tpl.Info.ProtocolType == model.ProtocolTypeByte && (params.IsMBAP() || params.IsCRC16())
	if !framed {
		r.bus.Publish(model.NewFrameEvent(model.EventRxFrame, id, formatHex(data)))
		return
	}

	frames, err := r.parser.Feed(data, params)
	more, drainErr := r.parser.Drain(params)
	frames = append(frames, more...)
	if err == nil {
		err = drainErr
	}

	for _, frame := range frames {
		r.bus.Publish(model.NewFrameEvent(model.EventRxFrame, id, formatHex(frame)))
	}
	if err != nil {
		r.logger.Warn("Dropped corrupt frame data", zap.Error(err), zap.Int("buffered", r.parser.Buffered()))
		r.bus.Publish(model.NewErrorEvent(id, CodeFramingError, err.Error()))
	}
}

func (r *Runtime) handleDisconnected(reason string) {
	r.setConnected(false)
	r.logger.LogConnection("disconnected: "+reason, true, nil)
	r.bus.Publish(model.NewConnectEvent(model.EventInstanceDisconnected, r.InstanceID(), reason))
}

// handleError publishes the error and escalates it to a disconnect when the
// message looks like a lost link and the instance was connected
func (r *Runtime) handleError(code int, message string) {
	id := r.InstanceID()
	r.bus.Publish(model.NewErrorEvent(id, code, message))

	if impliesDisconnect(message) && r.markedConnected() {
		r.setConnected(false)
		r.logger.Warn("Link lost")
		r.bus.Publish(model.NewConnectEvent(model.EventInstanceDisconnected, id, message))
	}
}
