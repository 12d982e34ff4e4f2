package main

import (
	"os"

	judgebenchcmder "github.com/papercomputeco/judgebench/cmd/judgebench"
)

func main() {
	cmd := judgebenchcmder.NewJudgebenchCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
