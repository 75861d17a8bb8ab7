package main

import "github.com/theirongolddev/memocal/cmd"

func main() {
	cmd.Execute()
}
