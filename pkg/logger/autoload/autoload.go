// Package autoload configures the global logger from the LOG_* environment
// on import. Blank-import it from main.
package autoload

import (
	configx "github.com/Khinkawu/crms6it-sub002/pkg/config"
	logx "github.com/Khinkawu/crms6it-sub002/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
