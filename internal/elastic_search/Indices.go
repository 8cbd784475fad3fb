package elastic_search

import (
	"fmt"

	"github.com/ZilDuck/zilliqa-nft-marketplace/internal/config"
)

type Indices string

var (
	ActionIndex    Indices = "action"
	RejectionIndex Indices = "rejection"
)

// Get prefixes the index with the configured index name
func (i Indices) Get() string {
	return fmt.Sprintf("%s.%s", config.Get().ElasticSearch.Index, string(i))
}

func All() []Indices {
	return []Indices{
		ActionIndex,
		RejectionIndex,
	}
}
