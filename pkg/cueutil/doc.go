// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the CUE parsing flow shared by project files and
// the configuration file:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify with schema
//  3. Validate and decode to Go value
//
// Errors carry the file name and a JSON-style path to the offending field.
package cueutil
