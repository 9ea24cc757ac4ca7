package main

import "pricewatch/cmd"

func main() {
	cmd.Execute()
}
