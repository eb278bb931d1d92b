package cachedcoinview

import (
	"github.com/stakecore/stakecore/infrastructure/logger"
	"github.com/stakecore/stakecore/util/panics"
)

var log = logger.RegisterSubSystem("CVCH")
var spawn = panics.GoroutineWrapperFunc(log)
