// Package ledger is the in-process asset ledger: the system of record for unique
// assets, their metadata plugins, and the transfer/freeze capabilities delegated
// on them. The marketplace program drives it through domain.AssetLedger.
//
// Transfer rules:
//   - a locked asset can never move again;
//   - a frozen asset moves only through a permanent transfer delegate;
//   - otherwise the owner or the current transfer delegate may move it;
//   - non-permanent delegates are cleared on every ownership change.
package ledger
