package main

import "github.com/orggate/orggate/cmd/orggate/cmd"

func main() {
	cmd.Execute()
}
