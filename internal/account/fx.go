package account

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/account/repository"
	"github.com/fckfck97/cie-corpoindustrial/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
