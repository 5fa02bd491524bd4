// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package version

// Version is overridden at build time:
// go build -ldflags "-X carvel.dev/vtl/pkg/version.Version=v0.1.0" ./cmd/vtl
var Version = "develop"
