// Package main contains main app entry point
package main

import (
	"log"

	"github.com/canonical/ingress-configurator/cmd"
)

func main() {
	c, err := cmd.RootCommand()
	if err != nil {
		log.Fatal(err)
	}

	if err = c.Execute(); err != nil {
		log.Fatal(err)
	}
}
