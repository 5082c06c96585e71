package main

import "github.com/shouni/go-pmda-docs/cmd"

func main() {
	cmd.Execute()
}
