// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package hostinfo

import "runtime"

func machineName() (string, error) {
	return runtime.GOARCH, nil
}
