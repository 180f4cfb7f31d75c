// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the sunpkg command line interface.
//
// Command handlers only parse flags, resolve configuration and hand off to the
// packager and publish packages. Errors leave through ExitError so that a
// failing packaging tool's exit status becomes the process exit status.
package cmd
