package main

import "github.com/crash-ph/admin-console/cmd"

func main() {
	cmd.Execute()
}
