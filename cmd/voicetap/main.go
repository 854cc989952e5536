package main

import "github.com/kbukum/voicetap/internal/cli"

func main() {
	cli.Execute()
}
