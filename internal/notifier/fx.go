package notifier

import (
	"github.com/fckfck97/cie-corpoindustrial/internal/notifier/repository"
	"github.com/fckfck97/cie-corpoindustrial/internal/notifier/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notifier.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
