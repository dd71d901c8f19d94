package main

import (
	"os"

	"github.com/aquilax/sitetree/logger"
)

func main() {
	if err := NewSiteTree().Run(os.Args); err != nil {
		logger.Fatal("sitetree stopped", "error", err.Error())
	}
}
