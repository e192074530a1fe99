package invite

import (
	"github.com/swapforge/swapforge/internal/invite/repository"
	"github.com/swapforge/swapforge/internal/invite/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invite.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
