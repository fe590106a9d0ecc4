package main

import "github.com/example/cal-admin/cmd"

func main() {
	cmd.Execute()
}
