// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package config holds runtime options of the template engine.

Options are read from a TOML document (typically vtl.toml) whose keys mirror
the fields of Runtime; unknown keys are rejected so that typos do not silently
fall back to defaults.
*/
package config
