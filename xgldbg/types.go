// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xgldbg

import (
	"fmt"

	"github.com/bureau-foundation/glave/lib/tracepacket"
)

// Opaque driver handles.
type (
	Device     uint64
	BaseObject uint64
	CmdBuffer  uint64

	// Callback identifies a registered message callback. Function
	// addresses do not survive a process boundary, so the handle is
	// recorded for matching register and unregister calls only.
	Callback uint64
)

// Enumerations passed through to the driver unchanged.
type (
	ValidationLevel uint32
	MsgFilter       uint32
	GlobalOption    uint32
	DeviceOption    uint32
)

// Validation levels.
const (
	ValidationLevel0 ValidationLevel = iota
	ValidationLevel1
	ValidationLevel2
	ValidationLevel3
	ValidationLevel4
)

// Message filters.
const (
	MsgFilterNone MsgFilter = iota
	MsgFilterRepeated
	MsgFilterAll
)

// Result is a driver status code. Negative values are errors.
type Result int32

const (
	ResultSuccess          Result = 0
	ResultErrorUnknown     Result = -1
	ResultErrorUnavailable Result = -2
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultErrorUnknown:
		return "error_unknown"
	case ResultErrorUnavailable:
		return "error_unavailable"
	default:
		return fmt.Sprintf("result(%d)", int32(r))
	}
}

// Packet IDs, allocated from tracepacket.PacketIDBeginAPI in entry
// point order.
const (
	PacketIDDbgSetValidationLevel = tracepacket.PacketIDBeginAPI + iota
	PacketIDDbgRegisterMsgCallback
	PacketIDDbgUnregisterMsgCallback
	PacketIDDbgSetMessageFilter
	PacketIDDbgSetObjectTag
	PacketIDDbgSetGlobalOption
	PacketIDDbgSetDeviceOption
	PacketIDCmdDbgMarkerBegin
	PacketIDCmdDbgMarkerEnd

	packetIDEnd
)

// EntryPoints lists the entry point names in packet ID order.
var EntryPoints = []string{
	"DbgSetValidationLevel",
	"DbgRegisterMsgCallback",
	"DbgUnregisterMsgCallback",
	"DbgSetMessageFilter",
	"DbgSetObjectTag",
	"DbgSetGlobalOption",
	"DbgSetDeviceOption",
	"CmdDbgMarkerBegin",
	"CmdDbgMarkerEnd",
}

var reservedNames = map[uint32]string{
	tracepacket.PacketIDMessage:          "Message",
	tracepacket.PacketIDMarkerCheckpoint: "MarkerCheckpoint",
	tracepacket.PacketIDAPIBoundary:      "APIBoundary",
	tracepacket.PacketIDAPIGroupBegin:    "APIGroupBegin",
	tracepacket.PacketIDAPIGroupEnd:      "APIGroupEnd",
	tracepacket.PacketIDTerminateProcess: "TerminateProcess",
}

// Name returns the entry point or marker name for packetID.
func Name(packetID uint32) string {
	if packetID >= tracepacket.PacketIDBeginAPI && packetID < packetIDEnd {
		return EntryPoints[packetID-tracepacket.PacketIDBeginAPI]
	}
	if name, ok := reservedNames[packetID]; ok {
		return name
	}
	return fmt.Sprintf("packet(%d)", packetID)
}
