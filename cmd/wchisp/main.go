package main

import "github.com/ch32-rs/wchisp/cmd/wchisp/cmd"

func main() {
	cmd.Execute()
}
