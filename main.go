package main

import "github.com/vellumdb/vellum/cmd"

func main() {
	cmd.Execute()
}
