package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/swapforge/swapforge/internal/cache"
	"github.com/swapforge/swapforge/internal/clock"
	"github.com/swapforge/swapforge/internal/config"
	"github.com/swapforge/swapforge/internal/credit"
	"github.com/swapforge/swapforge/internal/invite"
	"github.com/swapforge/swapforge/internal/migration"
	"github.com/swapforge/swapforge/internal/observability"
	"github.com/swapforge/swapforge/internal/sweeper"
	"github.com/swapforge/swapforge/internal/user"
	"github.com/swapforge/swapforge/pkg/db"
	"go.uber.org/fx"
)

// Headless expiry worker. Runs the same sweeps as the API process, for
// deployments that want expiry isolated from request serving.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		migration.Module,

		user.Module,
		credit.Module,
		invite.Module,

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
