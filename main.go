package main

import "aistudio/cmd"

func main() {
	cmd.Execute()
}
