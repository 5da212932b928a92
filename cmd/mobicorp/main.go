package main

import (
	"github.com/JosueCoro/mobicorp/internal/cli"
)

func main() {
	cli.Execute()
}
