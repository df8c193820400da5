package registry

import (
	"github.com/dukex/stagerun/pkg/stages/command"
	"github.com/dukex/stagerun/pkg/stages/filewrite"
	"github.com/dukex/stagerun/pkg/stages/log"
)

// RegisterDefaultStages registers the stages shipped with stagerun in the builtin namespace.
func (r *Registry) RegisterDefaultStages() {
	r.Register(BuiltinNamespace, log.NewLogStageFactory())
	r.Register(BuiltinNamespace, filewrite.NewFileWriteStageFactory())
	r.Register(BuiltinNamespace, command.NewCommandStageFactory())
}
