package main

import "github.com/strangelove-ventures/oapp-wirer/cmd"

func main() {
	cmd.Execute()
}
