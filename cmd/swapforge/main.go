package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/cache"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	"github.com/swapforge/swapforge/internal/migration"
	"github.com/swapforge/swapforge/internal/observability"
	"github.com/swapforge/swapforge/internal/server"
	"github.com/swapforge/swapforge/internal/sweeper"
	"github.com/swapforge/swapforge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		server.Module,
		sweeper.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
