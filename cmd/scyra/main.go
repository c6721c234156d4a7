package main

import (
	"github.com/scyra/scyra/internal/server"
	"go.uber.org/fx"
)

func main() {
	fx.New(server.Module).Run()
}
