// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xgldbg

import (
	"encoding/binary"

	"github.com/bureau-foundation/glave/lib/tracepacket"
)

// Fixed packet bodies, one per entry point. Variable-length arguments
// are stored as a byte count and a buffer reference.

type setValidationLevelBody struct {
	Device          Device
	ValidationLevel ValidationLevel
	Result          Result
}

type registerMsgCallbackBody struct {
	Callback Callback
	UserData uint64
	Result   Result
}

type unregisterMsgCallbackBody struct {
	Callback Callback
	Result   Result
}

type setMessageFilterBody struct {
	Device  Device
	MsgCode int32
	Filter  MsgFilter
	Result  Result
}

type setObjectTagBody struct {
	Object  BaseObject
	TagSize uint64
	Tag     tracepacket.BufferOffset
	Result  Result
}

type setGlobalOptionBody struct {
	Option   GlobalOption
	Result   Result
	DataSize uint64
	Data     tracepacket.BufferOffset
}

type setDeviceOptionBody struct {
	Device   Device
	Option   DeviceOption
	Result   Result
	DataSize uint64
	Data     tracepacket.BufferOffset
}

// MarkerSize includes the zero terminator.
type markerBeginBody struct {
	CmdBuffer  CmdBuffer
	MarkerSize uint64
	Marker     tracepacket.BufferOffset
}

type markerEndBody struct {
	CmdBuffer CmdBuffer
}

var (
	setValidationLevelSize    = binary.Size(setValidationLevelBody{})
	registerMsgCallbackSize   = binary.Size(registerMsgCallbackBody{})
	unregisterMsgCallbackSize = binary.Size(unregisterMsgCallbackBody{})
	setMessageFilterSize      = binary.Size(setMessageFilterBody{})
	setObjectTagSize          = binary.Size(setObjectTagBody{})
	setGlobalOptionSize       = binary.Size(setGlobalOptionBody{})
	setDeviceOptionSize       = binary.Size(setDeviceOptionBody{})
	markerBeginSize           = binary.Size(markerBeginBody{})
	markerEndSize             = binary.Size(markerEndBody{})
)
