// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/nativepack/cmd/nativepack"

func main() {
	cmd.Execute()
}
