package auth

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/repository"
	"github.com/fckfck97/cie-corpoindustrial/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(
		repository.Provide,
		service.NewTokenManager,
		service.New,
	),
)
