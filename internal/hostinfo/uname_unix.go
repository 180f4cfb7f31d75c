// SPDX-License-Identifier: MPL-2.0

//go:build unix

package hostinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func machineName() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}
