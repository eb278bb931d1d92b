package signal

import (
	"github.com/stakecore/stakecore/infrastructure/logger"
	"github.com/stakecore/stakecore/util/panics"
)

var log = logger.RegisterSubSystem("SGNL")
var spawn = panics.GoroutineWrapperFunc(log)
