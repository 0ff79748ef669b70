// Package main is the entry point for the bgm-tracker application.
package main

import (
	"github.com/bgm-tracker/tracker/cmd"
	"github.com/bgm-tracker/tracker/config"
	"github.com/bgm-tracker/tracker/log"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go log.CollectGarbage()

	cmd.Execute()
}
