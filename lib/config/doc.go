// Copyright (c) 2025 Quandela
// SPDX-License-Identifier: MIT

// Package config provides YAML configuration loading for perceval-interop.
//
// Configuration is loaded from a single file: the path in the
// PCVL_INTEROP_CONFIG environment variable, or the default location
// ~/.config/perceval-interop/config.yaml when the variable is unset.
// A missing file at the default location is not an error, the defaults
// simply apply. A missing file at an explicitly requested path IS an
// error. [LoadFile] loads a specific path directly.
//
// Unknown YAML keys are rejected so typos fail loudly instead of being
// silently ignored. Variable expansion is performed on string fields
// after loading: ${HOME}, ${PCVL_INTEROP_DATA} and ${VAR:-default}
// patterns are expanded. A small environment overlay is applied after
// the file: PCVL_INTEROP_CLOUD_URL and PCVL_INTEROP_TOKEN override the
// cloud URL and token for CI use.
//
// Key exports:
//
//   - [Config] -- master struct with Cloud, Notebooks, Paths
//   - [Default] -- returns a Config with the production cloud defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other perceval-interop packages.
package config
