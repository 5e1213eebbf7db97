package main

import "github.com/ppiankov/clearlift/internal/cli"

func main() {
	cli.Execute()
}
