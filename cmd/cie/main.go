package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/fckfck97/cie-corpoindustrial/internal/clock"
	"github.com/fckfck97/cie-corpoindustrial/internal/config"
	"github.com/fckfck97/cie-corpoindustrial/internal/migration"
	"github.com/fckfck97/cie-corpoindustrial/internal/scheduler"
	"github.com/fckfck97/cie-corpoindustrial/internal/server"
	"github.com/fckfck97/cie-corpoindustrial/pkg/db"
	"github.com/fckfck97/cie-corpoindustrial/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		scheduler.Module,
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
