package ledger

import (
	"strconv"

	"fintrack/internal/core"
)

// AllAccounts is the filter value selecting every transaction.
const AllAccounts = "all"

// FilterByAccount keeps transactions whose account id, written in base 10,
// equals filter exactly. An empty filter or AllAccounts keeps everything.
// The second return value is the selection to show in the UI.
//
// The comparison is on strings on purpose: "02" matches no account.
func FilterByAccount(txs []core.Transaction, filter string) ([]core.Transaction, string) {
	if filter == "" || filter == AllAccounts {
		out := make([]core.Transaction, len(txs))
		copy(out, txs)
		return out, AllAccounts
	}

	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if strconv.FormatInt(tx.AccountID, 10) == filter {
			out = append(out, tx)
		}
	}
	return out, filter
}
