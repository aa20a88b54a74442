package platform

import (
	"time"

	"github.com/Megamind2600/TimerAD/internal/core/model"
)

type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	return 0, model.ErrIdleUnsupported
}
