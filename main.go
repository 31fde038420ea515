package main

import "github.com/ValentinKolb/crund/cmd"

func main() {
	cmd.Execute()
}
