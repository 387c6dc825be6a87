package app

import (
	"github.com/vk/valuegraph/internal/config"
	"github.com/vk/valuegraph/internal/registry"
	"github.com/vk/valuegraph/modules/aggregation"
	"github.com/vk/valuegraph/modules/marketdata"
)

// coreModules is the list of Go function modules compiled into the
// valuegraph binary, configured from the catalogue.
func coreModules(c *config.Catalogue) []registry.Module {
	return []registry.Module{
		&marketdata.Module{Definition: c.MarketData},
		&aggregation.Module{Definitions: c.Aggregates},
	}
}
