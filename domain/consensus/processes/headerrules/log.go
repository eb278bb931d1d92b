package headerrules

import (
	"github.com/stakecore/stakecore/infrastructure/logger"
)

var log = logger.RegisterSubSystem("HDRV")
