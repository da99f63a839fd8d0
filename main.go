package main

import "github.com/Laeyoung/kanobot/cmd"

func main() {
	cmd.Execute()
}
