// Package scenario loads HCL scenario files: the simulated year range,
// convergence settings, per-module parameter overrides and extra lags.
//
// A scenario looks like:
//
//	simulation {
//	  start_year     = 2025
//	  end_year       = 2100
//	  max_iterations = 10
//	}
//
//	module "economy" {
//	  params = {
//	    growth_rate = 0.025
//	  }
//	}
//
//	lag "lagged_gdp" {
//	  source  = "gdp"
//	  initial = 0
//	}
package scenario
