// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package trace

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/glave/lib/tracepacket"
)

// MessageBody is the fixed body of a message packet. Text references a
// zero-terminated string of Length bytes, terminator included.
type MessageBody struct {
	Level  int32
	Length uint32
	Text   tracepacket.BufferOffset
}

var messageBodySize = binary.Size(MessageBody{})

// Message records a diagnostic line in the session.
func (t *Tracer) Message(level slog.Level, text string) error {
	data := make([]byte, len(text)+1)
	copy(data, text)

	packet := t.CreatePacket(tracepacket.PacketIDMessage, messageBodySize, len(data))
	ref := packet.AddBuffer(data)
	body := MessageBody{
		Level:  int32(level),
		Length: uint32(len(data)),
		Text:   packet.FinalizeBufferAddress(ref),
	}
	if err := packet.SetBody(&body); err != nil {
		return err
	}
	t.MarkEntrypointEnd(packet)
	return t.FinishPacket(packet)
}

// DecodeMessage returns the level and text of a message packet.
func DecodeMessage(view *tracepacket.View) (slog.Level, string, error) {
	if view.Header.PacketID != tracepacket.PacketIDMessage {
		return 0, "", fmt.Errorf("packet %d is not a message", view.Header.PacketID)
	}
	var body MessageBody
	if err := view.InterpretBody(&body); err != nil {
		return 0, "", err
	}
	text, err := view.CString(body.Text)
	if err != nil {
		return 0, "", err
	}
	return slog.Level(body.Level), text, nil
}
