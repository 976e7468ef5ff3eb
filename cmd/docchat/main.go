// Package main is the entry point for the DocChat service.
package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/docchat/cmd/docchat/app"
)

func main() {
	app.NewApp().Run()
}
