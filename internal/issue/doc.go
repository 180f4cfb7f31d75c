// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// Errors carry the operation that failed, the resource involved and suggestions,
// and may link to a catalog issue with Markdown guidance rendered by glamour.
package issue
