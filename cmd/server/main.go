package main

import "livechat/internal/app"

func main() {
	app.Run()
}
