package main

import "github.com/danieceiflora/perdcomp01-sub000/internal/cli"

func main() {
	cli.Execute()
}
