package main

import "github.com/rdsim/rdsim/cmd"

func main() {
	cmd.Execute()
}
