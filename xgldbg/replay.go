// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xgldbg

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/glave/lib/tracepacket"
	"github.com/bureau-foundation/glave/trace"
)

// ErrUnknownPacket is returned for an API packet ID outside this
// package's range.
var ErrUnknownPacket = errors.New("unknown entry point packet")

// ResultMismatchError reports a replayed call whose result differs from
// the recorded one.
type ResultMismatchError struct {
	PacketIndex uint64
	EntryPoint  string
	Recorded    Result
	Replayed    Result
}

func (e *ResultMismatchError) Error() string {
	return fmt.Sprintf("packet %d: %s returned %s, recorded %s",
		e.PacketIndex, e.EntryPoint, e.Replayed, e.Recorded)
}

// Replay issues the call recorded in view against driver. Packets with
// reserved IDs carry no call and are skipped.
func Replay(view *tracepacket.View, driver Driver) error {
	id := view.Header.PacketID
	if id < tracepacket.PacketIDBeginAPI {
		return nil
	}
	call, err := decodeCall(view)
	if err != nil {
		return err
	}
	replayed, hasResult := call.invoke(driver)
	if hasResult && replayed != call.result {
		return &ResultMismatchError{
			PacketIndex: view.Header.GlobalPacketIndex,
			EntryPoint:  Name(id),
			Recorded:    call.result,
			Replayed:    replayed,
		}
	}
	return nil
}

// Describe renders view as one line.
func Describe(view *tracepacket.View) (string, error) {
	id := view.Header.PacketID
	if id == tracepacket.PacketIDMessage {
		level, text, err := trace.DecodeMessage(view)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Message(%s, %q)", level, text), nil
	}
	if id < tracepacket.PacketIDBeginAPI {
		return Name(id), nil
	}
	call, err := decodeCall(view)
	if err != nil {
		return "", err
	}
	return call.String(), nil
}

// call is one decoded entry point invocation.
type call struct {
	id     uint32
	result Result
	body   any
	blob   []byte
	marker string
}

func (c *call) invoke(driver Driver) (Result, bool) {
	switch body := c.body.(type) {
	case *setValidationLevelBody:
		return driver.DbgSetValidationLevel(body.Device, body.ValidationLevel), true
	case *registerMsgCallbackBody:
		return driver.DbgRegisterMsgCallback(body.Callback, body.UserData), true
	case *unregisterMsgCallbackBody:
		return driver.DbgUnregisterMsgCallback(body.Callback), true
	case *setMessageFilterBody:
		return driver.DbgSetMessageFilter(body.Device, body.MsgCode, body.Filter), true
	case *setObjectTagBody:
		return driver.DbgSetObjectTag(body.Object, c.blob), true
	case *setGlobalOptionBody:
		return driver.DbgSetGlobalOption(body.Option, c.blob), true
	case *setDeviceOptionBody:
		return driver.DbgSetDeviceOption(body.Device, body.Option, c.blob), true
	case *markerBeginBody:
		driver.CmdDbgMarkerBegin(body.CmdBuffer, c.marker)
	case *markerEndBody:
		driver.CmdDbgMarkerEnd(body.CmdBuffer)
	}
	return 0, false
}

func (c *call) String() string {
	var arguments string
	switch body := c.body.(type) {
	case *setValidationLevelBody:
		arguments = fmt.Sprintf("device=%#x, level=%d", uint64(body.Device), body.ValidationLevel)
	case *registerMsgCallbackBody:
		arguments = fmt.Sprintf("callback=%#x, user_data=%#x", uint64(body.Callback), body.UserData)
	case *unregisterMsgCallbackBody:
		arguments = fmt.Sprintf("callback=%#x", uint64(body.Callback))
	case *setMessageFilterBody:
		arguments = fmt.Sprintf("device=%#x, msg_code=%d, filter=%d", uint64(body.Device), body.MsgCode, body.Filter)
	case *setObjectTagBody:
		arguments = fmt.Sprintf("object=%#x, tag=%d bytes", uint64(body.Object), len(c.blob))
	case *setGlobalOptionBody:
		arguments = fmt.Sprintf("option=%d, data=%d bytes", body.Option, len(c.blob))
	case *setDeviceOptionBody:
		arguments = fmt.Sprintf("device=%#x, option=%d, data=%d bytes", uint64(body.Device), body.Option, len(c.blob))
	case *markerBeginBody:
		return fmt.Sprintf("%s(cmd_buffer=%#x, marker=%q)", Name(c.id), uint64(body.CmdBuffer), c.marker)
	case *markerEndBody:
		return fmt.Sprintf("%s(cmd_buffer=%#x)", Name(c.id), uint64(body.CmdBuffer))
	}
	return fmt.Sprintf("%s(%s) = %s", Name(c.id), arguments, c.result)
}

func decodeCall(view *tracepacket.View) (*call, error) {
	c := &call{id: view.Header.PacketID}
	var err error
	switch c.id {
	case PacketIDDbgSetValidationLevel:
		body := &setValidationLevelBody{}
		err = view.InterpretBody(body)
		c.body, c.result = body, body.Result
	case PacketIDDbgRegisterMsgCallback:
		body := &registerMsgCallbackBody{}
		err = view.InterpretBody(body)
		c.body, c.result = body, body.Result
	case PacketIDDbgUnregisterMsgCallback:
		body := &unregisterMsgCallbackBody{}
		err = view.InterpretBody(body)
		c.body, c.result = body, body.Result
	case PacketIDDbgSetMessageFilter:
		body := &setMessageFilterBody{}
		err = view.InterpretBody(body)
		c.body, c.result = body, body.Result
	case PacketIDDbgSetObjectTag:
		body := &setObjectTagBody{}
		if err = view.InterpretBody(body); err == nil {
			c.blob, err = view.Buffer(body.Tag, body.TagSize)
		}
		c.body, c.result = body, body.Result
	case PacketIDDbgSetGlobalOption:
		body := &setGlobalOptionBody{}
		if err = view.InterpretBody(body); err == nil {
			c.blob, err = view.Buffer(body.Data, body.DataSize)
		}
		c.body, c.result = body, body.Result
	case PacketIDDbgSetDeviceOption:
		body := &setDeviceOptionBody{}
		if err = view.InterpretBody(body); err == nil {
			c.blob, err = view.Buffer(body.Data, body.DataSize)
		}
		c.body, c.result = body, body.Result
	case PacketIDCmdDbgMarkerBegin:
		body := &markerBeginBody{}
		if err = view.InterpretBody(body); err == nil {
			c.marker, err = view.CString(body.Marker)
		}
		c.body = body
	case PacketIDCmdDbgMarkerEnd:
		body := &markerEndBody{}
		err = view.InterpretBody(body)
		c.body = body
	default:
		return nil, fmt.Errorf("packet %d (index %d): %w", c.id, view.Header.GlobalPacketIndex, ErrUnknownPacket)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", Name(c.id), err)
	}
	return c, nil
}
