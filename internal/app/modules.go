package app

import (
	"github.com/vk/wiresim/modules/world"
)

// newModel builds the model compiled into the wiresim binary.
var newModel = world.New
