package main

import "roundkeeper/cmd/client/cmd"

func main() {
	cmd.Execute()
}
