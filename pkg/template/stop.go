// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"errors"
	"fmt"
)

// Stop is a non-local exit signal. It is returned as an error value
// and caught by the construct that pushed the targeted scope
// (or by Template.Merge when it targets everything).
type Stop struct {
	scope   *Scope
	nearest bool
	msg     string
}

var _ error = &Stop{}

func newStopAll(msg string) *Stop         { return &Stop{msg: msg} }
func newStopScope(scope *Scope) *Stop     { return &Stop{scope: scope} }
func newBreakNearestLoop() *Stop          { return &Stop{nearest: true} }
func (s *Stop) Message() string           { return s.msg }
func (s *Stop) StopsAll() bool            { return s.scope == nil && !s.nearest }
func (s *Stop) Scope() *Scope             { return s.scope }
func (s *Stop) stopsNearestLoop() bool    { return s.nearest }
func (s *Stop) isForScope(sc *Scope) bool { return sc != nil && s.scope == sc }

func (s *Stop) Error() string {
	switch {
	case s.nearest:
		return "break of nearest #foreach"
	case s.scope != nil:
		return fmt.Sprintf("stop of scope '%s'", s.scope.name)
	case len(s.msg) > 0:
		return fmt.Sprintf("stop: %s", s.msg)
	default:
		return "stop"
	}
}

// IsStop reports whether err is (or wraps) a control flow signal.
func IsStop(err error) bool {
	var stop *Stop
	return errors.As(err, &stop)
}

func asStop(err error) (*Stop, bool) {
	var stop *Stop
	if errors.As(err, &stop) {
		return stop, true
	}
	return nil, false
}
