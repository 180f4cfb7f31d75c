// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/sunpkg/sunpkg/cmd/sunpkg"

func main() {
	cmd.Execute()
}
