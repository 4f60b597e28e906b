package main

import "github.com/dxos/version-check/cmd"

func main() {
	cmd.Execute()
}
