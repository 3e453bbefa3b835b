// =============================================================================
// POS Migrator - Main Entry Point
// =============================================================================
//
// USAGE:
//   migrator run            - Migrate the exports in the input directory
//   migrator validate       - Reconcile the store with the exports
//   migrator serve          - Serve the store over HTTP
//   migrator rules export   - Write the effective rules file
//   migrator version        - Display the application version
//
// LAYOUT:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Parsing, planning, stages, store and reconciliation
//   - pkg/       : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/nayeem-1786/AutoDetailApp-sub001/cmd"
)

func main() {
	cmd.Execute()
}
