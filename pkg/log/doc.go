// Package log provides a very small wrapper around Go's standard library
// logger so every component of edstream logs the same way.
//
// Key Features
//
//   - Per service loggers via ForService(name), e.g. "stream", "api", "hooks"
//   - Child loggers via Named(sub), rendered as "parent:sub" (the stream uses
//     this to tag each websocket session)
//   - Automatic prefix in every line: `[name>]`
//   - Level helpers: Infof, Warnf, Errorf, Debugf
//   - Level tags colored with fatih/color when writing to a terminal
//   - Debug logging enabled globally (SetGlobalDebug) or per service
//     (EnableDebugFor / DisableDebugFor); enabling a parent enables its children
//   - Central output writer (SetOutput) that updates existing loggers
//
// Basic Usage
//
//	l := log.ForService("stream")
//	l.Infof("connection established")
//	l.Debugf("frame: %s", raw) // printed only with --debug
//
// Testing
//
// Tests redirect output by calling SetOutput with a bytes.Buffer and
// disable colors with SetColor(false) to assert on plain text.
//
// The package name collides with stdlib "log". When both are needed, alias
// one of them:
//
//	import (
//		stdlog "log"
//		"github.com/rubiojr/edstream/pkg/log"
//	)
package log
