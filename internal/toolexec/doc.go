// SPDX-License-Identifier: MPL-2.0

// Package toolexec runs the external packaging tools.
//
// Every invocation is an argument vector handed straight to the operating
// system; no shell ever interprets project metadata. Pipelines and file
// redirections that the tools need are wired up here with OS pipes.
package toolexec
