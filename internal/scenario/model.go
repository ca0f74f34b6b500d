package scenario

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/vk/wiresim/internal/lag"
	"github.com/vk/wiresim/internal/value"
)

// Scenario is a decoded scenario file.
type Scenario struct {
	Path      string
	StartYear int
	EndYear   int
	// MaxIterations and Tolerance are zero when the file leaves them out.
	MaxIterations       int
	Tolerance           float64
	TrackTransformReads bool
	// Overrides holds the params record of every module block.
	Overrides map[string]value.Record
	Lags      lag.Set
}

// fileRoot decodes the top-level blocks of a scenario file. Unknown blocks
// are rejected by the decoder.
type fileRoot struct {
	Simulation *simulationBlock `hcl:"simulation,block"`
	Modules    []*moduleBlock   `hcl:"module,block"`
	Lags       []*lagBlock      `hcl:"lag,block"`
}

type simulationBlock struct {
	StartYear           int      `hcl:"start_year"`
	EndYear             int      `hcl:"end_year"`
	MaxIterations       *int     `hcl:"max_iterations,optional"`
	Tolerance           *float64 `hcl:"tolerance,optional"`
	TrackTransformReads *bool    `hcl:"track_transform_reads,optional"`
}

type moduleBlock struct {
	Name   string         `hcl:"name,label"`
	Params hcl.Expression `hcl:"params,optional"`
}

type lagBlock struct {
	Name    string         `hcl:"name,label"`
	Source  string         `hcl:"source"`
	Delay   *int           `hcl:"delay,optional"`
	Initial hcl.Expression `hcl:"initial,optional"`
}
