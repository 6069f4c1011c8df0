package main

import "github.com/giygas/meditrust-api/cmd"

func main() {
	cmd.Execute()
}
