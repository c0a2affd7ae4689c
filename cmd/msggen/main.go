package main

import "github.com/danmuck/msggen/cmd/msggen/cmd"

func main() {
	cmd.Execute()
}
