package main

import "github.com/notefeed/apiserver/cmd"

func main() {
	cmd.Execute()
}
