package rewindindex

import (
	"github.com/stakecore/stakecore/infrastructure/logger"
)

var log = logger.RegisterSubSystem("RWIX")
