package billing

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/repository"
	"github.com/fckfck97/cie-corpoindustrial/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
