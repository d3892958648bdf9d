package main

import "github.com/emberlog/emberlog/internal/app"

func main() {
	app.Run()
}
