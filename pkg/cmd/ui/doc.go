// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package ui provides a thin abstraction over user facing output of commands
(typically, a tty device): rendered results, warnings and debug messages.
*/
package ui
