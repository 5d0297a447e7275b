// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xgldbg

import (
	"sync"

	"github.com/bureau-foundation/glave/lib/tracepacket"
	"github.com/bureau-foundation/glave/trace"
)

// Compile-time interface check.
var _ Driver = (*Hooks)(nil)

// Hooks forwards every call to the real driver and records it. A
// capture failure never changes what the application sees; the first
// one is kept for Err.
type Hooks struct {
	tracer *trace.Tracer
	driver Driver

	mu  sync.Mutex
	err error
}

// NewHooks records calls to driver through tracer.
func NewHooks(tracer *trace.Tracer, driver Driver) *Hooks {
	return &Hooks{tracer: tracer, driver: driver}
}

// Err returns the first capture failure.
func (h *Hooks) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.err
}

// begin announces the entry point and allocates its packet with room
// for extra bytes of buffers.
func (h *Hooks) begin(packetID uint32, bodySize, extra int) *tracepacket.Packet {
	h.tracer.Announce(Name(packetID))
	packet := h.tracer.CreatePacket(packetID, bodySize, extra)
	h.tracer.MarkEntrypointBegin(packet)
	return packet
}

// finish stores body and emits the packet.
func (h *Hooks) finish(packet *tracepacket.Packet, body any) {
	err := packet.SetBody(body)
	if err == nil {
		err = h.tracer.FinishPacket(packet)
	}
	if err != nil {
		h.mu.Lock()
		if h.err == nil {
			h.err = err
		}
		h.mu.Unlock()
	}
}

// DbgSetValidationLevel forwards to the driver and records the level and result.
func (h *Hooks) DbgSetValidationLevel(device Device, level ValidationLevel) Result {
	packet := h.begin(PacketIDDbgSetValidationLevel, setValidationLevelSize, 0)
	result := h.driver.DbgSetValidationLevel(device, level)
	h.tracer.MarkEntrypointEnd(packet)
	h.finish(packet, &setValidationLevelBody{
		Device:          device,
		ValidationLevel: level,
		Result:          result,
	})
	return result
}

// DbgRegisterMsgCallback forwards to the driver and records the callback handle.
func (h *Hooks) DbgRegisterMsgCallback(callback Callback, userData uint64) Result {
	packet := h.begin(PacketIDDbgRegisterMsgCallback, registerMsgCallbackSize, 0)
	result := h.driver.DbgRegisterMsgCallback(callback, userData)
	h.tracer.MarkEntrypointEnd(packet)
	h.finish(packet, &registerMsgCallbackBody{
		Callback: callback,
		UserData: userData,
		Result:   result,
	})
	return result
}

// DbgUnregisterMsgCallback forwards to the driver and records the callback handle.
func (h *Hooks) DbgUnregisterMsgCallback(callback Callback) Result {
	packet := h.begin(PacketIDDbgUnregisterMsgCallback, unregisterMsgCallbackSize, 0)
	result := h.driver.DbgUnregisterMsgCallback(callback)
	h.tracer.MarkEntrypointEnd(packet)
	h.finish(packet, &unregisterMsgCallbackBody{Callback: callback, Result: result})
	return result
}

// DbgSetMessageFilter forwards to the driver and records the filter.
func (h *Hooks) DbgSetMessageFilter(device Device, msgCode int32, filter MsgFilter) Result {
	packet := h.begin(PacketIDDbgSetMessageFilter, setMessageFilterSize, 0)
	result := h.driver.DbgSetMessageFilter(device, msgCode, filter)
	h.tracer.MarkEntrypointEnd(packet)
	h.finish(packet, &setMessageFilterBody{
		Device:  device,
		MsgCode: msgCode,
		Filter:  filter,
		Result:  result,
	})
	return result
}

// DbgSetObjectTag forwards to the driver and records a copy of tag.
func (h *Hooks) DbgSetObjectTag(object BaseObject, tag []byte) Result {
	packet := h.begin(PacketIDDbgSetObjectTag, setObjectTagSize, len(tag))
	result := h.driver.DbgSetObjectTag(object, tag)
	h.tracer.MarkEntrypointEnd(packet)
	ref := packet.AddBuffer(tag)
	h.finish(packet, &setObjectTagBody{
		Object:  object,
		TagSize: uint64(len(tag)),
		Result:  result,
		Tag:     packet.FinalizeBufferAddress(ref),
	})
	return result
}

// DbgSetGlobalOption forwards to the driver and records a copy of data.
func (h *Hooks) DbgSetGlobalOption(option GlobalOption, data []byte) Result {
	packet := h.begin(PacketIDDbgSetGlobalOption, setGlobalOptionSize, len(data))
	result := h.driver.DbgSetGlobalOption(option, data)
	h.tracer.MarkEntrypointEnd(packet)
	ref := packet.AddBuffer(data)
	h.finish(packet, &setGlobalOptionBody{
		Option:   option,
		DataSize: uint64(len(data)),
		Result:   result,
		Data:     packet.FinalizeBufferAddress(ref),
	})
	return result
}

// DbgSetDeviceOption forwards to the driver and records a copy of data.
func (h *Hooks) DbgSetDeviceOption(device Device, option DeviceOption, data []byte) Result {
	packet := h.begin(PacketIDDbgSetDeviceOption, setDeviceOptionSize, len(data))
	result := h.driver.DbgSetDeviceOption(device, option, data)
	h.tracer.MarkEntrypointEnd(packet)
	ref := packet.AddBuffer(data)
	h.finish(packet, &setDeviceOptionBody{
		Device:   device,
		Option:   option,
		DataSize: uint64(len(data)),
		Result:   result,
		Data:     packet.FinalizeBufferAddress(ref),
	})
	return result
}

// CmdDbgMarkerBegin forwards to the driver and records the marker with
// its terminating NUL.
func (h *Hooks) CmdDbgMarkerBegin(cmdBuffer CmdBuffer, marker string) {
	terminated := make([]byte, len(marker)+1)
	copy(terminated, marker)

	packet := h.begin(PacketIDCmdDbgMarkerBegin, markerBeginSize, len(terminated))
	h.driver.CmdDbgMarkerBegin(cmdBuffer, marker)
	h.tracer.MarkEntrypointEnd(packet)
	ref := packet.AddBuffer(terminated)
	h.finish(packet, &markerBeginBody{
		CmdBuffer:  cmdBuffer,
		MarkerSize: uint64(len(terminated)),
		Marker:     packet.FinalizeBufferAddress(ref),
	})
}

// CmdDbgMarkerEnd forwards to the driver.
func (h *Hooks) CmdDbgMarkerEnd(cmdBuffer CmdBuffer) {
	packet := h.begin(PacketIDCmdDbgMarkerEnd, markerEndSize, 0)
	h.driver.CmdDbgMarkerEnd(cmdBuffer)
	h.tracer.MarkEntrypointEnd(packet)
	h.finish(packet, &markerEndBody{CmdBuffer: cmdBuffer})
}
