/*
	Copyright 2023 Markus Papenbrock
*/

package main

import "github.com/mpapenbr/racedash/cmd"

func main() {
	cmd.Execute()
}
