package consensus

import (
	"github.com/stakecore/stakecore/infrastructure/logger"
)

var log = logger.RegisterSubSystem("CSRE")
