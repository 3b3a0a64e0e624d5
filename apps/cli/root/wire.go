package root

import (
	"github.com/zenGate-Global/domain-verification/apps/cli/cmd/domain"
	"github.com/zenGate-Global/domain-verification/apps/cli/cmd/migrate"
)

func init() {
	Root().AddCommand(migrate.Command())
	Root().AddCommand(domain.Command())
}
