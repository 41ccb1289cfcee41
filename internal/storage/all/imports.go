// Package all wires the built-in storage backends into the storage factory.
//
// It exists purely for side effects: blank-importing it runs the init
// functions of each concrete backend, which register their factories with
// the storage package. A build that needs only one engine can import that
// backend package directly instead.
package all

import (
	_ "vendas/internal/storage/postgres"
	_ "vendas/internal/storage/sqlite"
)
