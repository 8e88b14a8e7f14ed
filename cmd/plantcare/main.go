package main

import "plant-care/cmd/plantcare/root"

func main() {
	root.Execute()
}
