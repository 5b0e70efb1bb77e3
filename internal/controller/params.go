// internal/controller/params.go
package controller

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"light-controller-service/internal/model"
	"light-controller-service/internal/protocol"
	"light-controller-service/internal/transport"
)

// SetParamAndBuildCommand validates and saves the value, then builds the command
// without sending it. CommandOut carries the printable command.
func (r *Runtime) SetParamAndBuildCommand(req model.ParamSetRequest) model.ParamSetResult {
	start := time.Now()
	res, _ := r.buildAndSave(req)
	r.logger.LogParamSet(req.ParamKey, req.ChannelID, req.Value, time.Since(start), res.OK, res.Message)
	return res
}

// SetParamAndSend validates and saves the value, then builds, frames and sends the
// command unless the commit policy is SAVE_ONLY. A failed build or send leaves the
// saved value in place.
func (r *Runtime) SetParamAndSend(req model.ParamSetRequest) model.ParamSetResult {
	start := time.Now()
	res := r.setParamAndSend(req)
	r.logger.LogParamSet(req.ParamKey, req.ChannelID, req.Value, time.Since(start), res.OK, res.Message)
	return res
}

func (r *Runtime) setParamAndSend(req model.ParamSetRequest) model.ParamSetResult {
	res, payload := r.buildAndSave(req)
	if !res.OK || payload == nil {
		return res
	}

	tr := r.currentTransport()
	if tr == nil || !tr.IsConnected() {
		return model.ParamSetResult{OK: false, Message: MessageNotConnected, CommandOut: res.CommandOut}
	}

	var out []byte
	switch payload.ProtocolType {
	case model.ProtocolTypeString:
		out = []byte(payload.StringCmd)
	case model.ProtocolTypeByte:
		out = payload.FrameBytes
	}

	res.Message = MessageSent
	if f, ok := tr.(transport.Fanout); ok {
		if n, fan := f.Peers(); fan && n == 0 {
			res.Message = MessageNoClients
		}
	}

	if err := tr.SendBytes(out); err != nil {
		return model.ParamSetResult{OK: false, Message: "SendBytes failed: " + err.Error(), CommandOut: res.CommandOut}
	}

	r.logger.LogTxFrame(payload.Printable, len(out))
	r.bus.Publish(model.NewFrameEvent(model.EventTxFrame, r.InstanceID(), payload.Printable))
	return res
}

// buildAndSave returns a nil payload when nothing is to be sent
func (r *Runtime) buildAndSave(req model.ParamSetRequest) (model.ParamSetResult, *model.BuiltPayload) {
	fail := func(format string, args ...any) (model.ParamSetResult, *model.BuiltPayload) {
		return model.ParamSetResult{OK: false, Message: fmt.Sprintf(format, args...)}, nil
	}

	def, ok := r.tpl.FindParam(req.ParamKey)
	if !ok {
		return fail("%v: %s", ErrParamNotFound, req.ParamKey)
	}

	loc, channelIndex, err := r.validate(req, def)
	if err != nil {
		return fail("%v", err)
	}

	r.mu.Lock()
	if loc == model.ParamLocationGlobal {
		if r.inst.GlobalValues == nil {
			r.inst.GlobalValues = make(map[string]string)
		}
		r.inst.GlobalValues[req.ParamKey] = req.Value
	} else {
		if r.inst.ChannelValues == nil {
			r.inst.ChannelValues = make(map[string]map[string]string)
		}
		if r.inst.ChannelValues[req.ParamKey] == nil {
			r.inst.ChannelValues[req.ParamKey] = make(map[string]string)
		}
		r.inst.ChannelValues[req.ParamKey][req.ChannelID] = req.Value
	}
	r.mu.Unlock()

	if def.Command.Commit == model.CommitSaveOnly {
		return model.ParamSetResult{OK: true, Message: MessageOK}, nil
	}

	info := r.tpl.Info
	if info.ProtocolType == model.ProtocolTypeByte && info.ByteParams.DeviceAddress == "" {
		return fail("%v", ErrNoDeviceAddress)
	}

	payload, err := r.factory.Build(info.ProtocolType, def.Command, req.Value, channelIndex)
	if err != nil {
		if protocol.IsConfigError(err) {
			r.logger.Error("Template command rule is misconfigured",
				zap.String("param_key", req.ParamKey), zap.Error(err))
		}
		return fail("%v", err)
	}

	if payload.ProtocolType == model.ProtocolTypeByte {
		frame, err := r.wrapper.WrapPDU(payload.FrameBytes, info.ByteParams)
		if err != nil {
			return fail("wrap PDU: %v", err)
		}
		payload.FrameBytes = frame
		payload.Printable = formatHex(frame)
	}

	return model.ParamSetResult{OK: true, Message: MessageOK, CommandOut: payload.Printable}, &payload
}

// validate resolves the effective location and, for CHANNEL, the channel index.
// The request location wins when set; otherwise the template location is used.
func (r *Runtime) validate(req model.ParamSetRequest, def model.ParamDef) (model.ParamLocation, int, error) {
	if req.ParamKey == "" {
		return "", 0, fmt.Errorf("%w: param_key is empty", ErrParamNotFound)
	}
	if def.Location != model.ParamLocationUnknown && req.Location != model.ParamLocationUnknown && def.Location != req.Location {
		return "", 0, fmt.Errorf("%w: request=%s template=%s", ErrLocationMismatch, req.Location, def.Location)
	}

	loc := req.Location
	if loc == model.ParamLocationUnknown {
		loc = def.Location
	}
	switch loc {
	case model.ParamLocationGlobal:
		return loc, 0, nil
	case model.ParamLocationChannel:
		if req.ChannelID == "" {
			return "", 0, ErrChannelRequired
		}
		r.mu.RLock()
		ch, ok := r.inst.FindChannel(req.ChannelID)
		r.mu.RUnlock()
		if !ok {
			return "", 0, fmt.Errorf("%w: %s", ErrChannelNotFound, req.ChannelID)
		}
		return loc, ch.Index, nil
	default:
		return "", 0, ErrLocationUnknown
	}
}
