package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/config"
	"github.com/lumamail/backend/internal/logger"
	"github.com/lumamail/backend/internal/migration"
	"github.com/lumamail/backend/internal/server"
	"github.com/lumamail/backend/pkg/db"
	"go.uber.org/fx"
)

func main() {
	fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
	).Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
