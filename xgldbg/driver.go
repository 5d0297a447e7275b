// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package xgldbg

import (
	"errors"
	"fmt"
	"reflect"
)

// Driver is the debug entry point surface.
type Driver interface {
	DbgSetValidationLevel(device Device, level ValidationLevel) Result
	DbgRegisterMsgCallback(callback Callback, userData uint64) Result
	DbgUnregisterMsgCallback(callback Callback) Result
	DbgSetMessageFilter(device Device, msgCode int32, filter MsgFilter) Result
	DbgSetObjectTag(object BaseObject, tag []byte) Result
	DbgSetGlobalOption(option GlobalOption, data []byte) Result
	DbgSetDeviceOption(device Device, option DeviceOption, data []byte) Result
	CmdDbgMarkerBegin(cmdBuffer CmdBuffer, marker string)
	CmdDbgMarkerEnd(cmdBuffer CmdBuffer)
}

// Function types of the real entry points, as a lookup must return
// them.
type (
	SetValidationLevelFunc    func(Device, ValidationLevel) Result
	RegisterMsgCallbackFunc   func(Callback, uint64) Result
	UnregisterMsgCallbackFunc func(Callback) Result
	SetMessageFilterFunc      func(Device, int32, MsgFilter) Result
	SetObjectTagFunc          func(BaseObject, []byte) Result
	SetGlobalOptionFunc       func(GlobalOption, []byte) Result
	SetDeviceOptionFunc       func(Device, DeviceOption, []byte) Result
	MarkerBeginFunc           func(CmdBuffer, string)
	MarkerEndFunc             func(CmdBuffer)
)

// ErrEntryType is returned by Resolve when a lookup yields a value of
// the wrong function type.
var ErrEntryType = errors.New("real entry point has the wrong type")

// Compile-time interface check.
var _ Driver = (*RealTable)(nil)

// RealTable holds the real entry points. It is populated once by
// Resolve or TableFromDriver and never modified, so it is safe for
// concurrent use.
type RealTable struct {
	setValidationLevel    SetValidationLevelFunc
	registerMsgCallback   RegisterMsgCallbackFunc
	unregisterMsgCallback UnregisterMsgCallbackFunc
	setMessageFilter      SetMessageFilterFunc
	setObjectTag          SetObjectTagFunc
	setGlobalOption       SetGlobalOptionFunc
	setDeviceOption       SetDeviceOptionFunc
	markerBegin           MarkerBeginFunc
	markerEnd             MarkerEndFunc

	resolved map[string]bool
}

// Resolve builds a table by asking lookup for each name in
// EntryPoints. A name lookup cannot find stays unresolved; a value of
// the wrong function type fails the whole resolution.
func Resolve(lookup func(name string) (any, bool)) (*RealTable, error) {
	table := &RealTable{resolved: make(map[string]bool, len(EntryPoints))}
	var errs []error
	for _, name := range EntryPoints {
		value, ok := lookup(name)
		if !ok || value == nil {
			table.resolved[name] = false
			continue
		}
		if !table.bind(name, value) {
			errs = append(errs, fmt.Errorf("%s: got %T: %w", name, value, ErrEntryType))
			continue
		}
		table.resolved[name] = true
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return table, nil
}

func (t *RealTable) bind(name string, value any) bool {
	var ok bool
	switch name {
	case "DbgSetValidationLevel":
		t.setValidationLevel, ok = asFunc[SetValidationLevelFunc](value)
	case "DbgRegisterMsgCallback":
		t.registerMsgCallback, ok = asFunc[RegisterMsgCallbackFunc](value)
	case "DbgUnregisterMsgCallback":
		t.unregisterMsgCallback, ok = asFunc[UnregisterMsgCallbackFunc](value)
	case "DbgSetMessageFilter":
		t.setMessageFilter, ok = asFunc[SetMessageFilterFunc](value)
	case "DbgSetObjectTag":
		t.setObjectTag, ok = asFunc[SetObjectTagFunc](value)
	case "DbgSetGlobalOption":
		t.setGlobalOption, ok = asFunc[SetGlobalOptionFunc](value)
	case "DbgSetDeviceOption":
		t.setDeviceOption, ok = asFunc[SetDeviceOptionFunc](value)
	case "CmdDbgMarkerBegin":
		t.markerBegin, ok = asFunc[MarkerBeginFunc](value)
	case "CmdDbgMarkerEnd":
		t.markerEnd, ok = asFunc[MarkerEndFunc](value)
	}
	return ok
}

// asFunc accepts both the named function type and an unnamed function
// value of the same signature.
func asFunc[F any](value any) (F, bool) {
	if fn, ok := value.(F); ok {
		return fn, true
	}
	var zero F
	target := reflect.TypeFor[F]()
	fn := reflect.ValueOf(value)
	if fn.Kind() != reflect.Func || !fn.Type().ConvertibleTo(target) {
		return zero, false
	}
	return fn.Convert(target).Interface().(F), true
}

// TableFromDriver builds a fully resolved table that forwards to
// driver.
func TableFromDriver(driver Driver) *RealTable {
	table := &RealTable{
		setValidationLevel:    driver.DbgSetValidationLevel,
		registerMsgCallback:   driver.DbgRegisterMsgCallback,
		unregisterMsgCallback: driver.DbgUnregisterMsgCallback,
		setMessageFilter:      driver.DbgSetMessageFilter,
		setObjectTag:          driver.DbgSetObjectTag,
		setGlobalOption:       driver.DbgSetGlobalOption,
		setDeviceOption:       driver.DbgSetDeviceOption,
		markerBegin:           driver.CmdDbgMarkerBegin,
		markerEnd:             driver.CmdDbgMarkerEnd,
		resolved:              make(map[string]bool, len(EntryPoints)),
	}
	for _, name := range EntryPoints {
		table.resolved[name] = true
	}
	return table
}

// Resolved reports whether the named entry point has a real
// implementation.
func (t *RealTable) Resolved(name string) bool {
	return t.resolved[name]
}

// Unresolved returns the entry points without a real implementation,
// in EntryPoints order.
func (t *RealTable) Unresolved() []string {
	var missing []string
	for _, name := range EntryPoints {
		if !t.resolved[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (t *RealTable) DbgSetValidationLevel(device Device, level ValidationLevel) Result {
	if t.setValidationLevel == nil {
		return ResultErrorUnavailable
	}
	return t.setValidationLevel(device, level)
}

func (t *RealTable) DbgRegisterMsgCallback(callback Callback, userData uint64) Result {
	if t.registerMsgCallback == nil {
		return ResultErrorUnavailable
	}
	return t.registerMsgCallback(callback, userData)
}

func (t *RealTable) DbgUnregisterMsgCallback(callback Callback) Result {
	if t.unregisterMsgCallback == nil {
		return ResultErrorUnavailable
	}
	return t.unregisterMsgCallback(callback)
}

func (t *RealTable) DbgSetMessageFilter(device Device, msgCode int32, filter MsgFilter) Result {
	if t.setMessageFilter == nil {
		return ResultErrorUnavailable
	}
	return t.setMessageFilter(device, msgCode, filter)
}

func (t *RealTable) DbgSetObjectTag(object BaseObject, tag []byte) Result {
	if t.setObjectTag == nil {
		return ResultErrorUnavailable
	}
	return t.setObjectTag(object, tag)
}

func (t *RealTable) DbgSetGlobalOption(option GlobalOption, data []byte) Result {
	if t.setGlobalOption == nil {
		return ResultErrorUnavailable
	}
	return t.setGlobalOption(option, data)
}

func (t *RealTable) DbgSetDeviceOption(device Device, option DeviceOption, data []byte) Result {
	if t.setDeviceOption == nil {
		return ResultErrorUnavailable
	}
	return t.setDeviceOption(device, option, data)
}

func (t *RealTable) CmdDbgMarkerBegin(cmdBuffer CmdBuffer, marker string) {
	if t.markerBegin != nil {
		t.markerBegin(cmdBuffer, marker)
	}
}

func (t *RealTable) CmdDbgMarkerEnd(cmdBuffer CmdBuffer) {
	if t.markerEnd != nil {
		t.markerEnd(cmdBuffer)
	}
}

// NullDriver accepts every call and reports success.
type NullDriver struct{}

func (NullDriver) DbgSetValidationLevel(Device, ValidationLevel) Result { return ResultSuccess }
func (NullDriver) DbgRegisterMsgCallback(Callback, uint64) Result { return ResultSuccess }
func (NullDriver) DbgUnregisterMsgCallback(Callback) Result { return ResultSuccess }
func (NullDriver) DbgSetMessageFilter(Device, int32, MsgFilter) Result { return ResultSuccess }
func (NullDriver) DbgSetObjectTag(BaseObject, []byte) Result { return ResultSuccess }
func (NullDriver) DbgSetGlobalOption(GlobalOption, []byte) Result { return ResultSuccess }
func (NullDriver) DbgSetDeviceOption(Device, DeviceOption, []byte) Result { return ResultSuccess }
func (NullDriver) CmdDbgMarkerBegin(CmdBuffer, string) {}
func (NullDriver) CmdDbgMarkerEnd(CmdBuffer) {}
