package main

import (
	vanbus "github.com/doismellburning/vanhound/src"
)

func main() {
	vanbus.VanAtestMain()
}
