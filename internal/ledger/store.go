package ledger

import (
	"github.com/tconn93/Day-trader/internal/database"
)

// Store wires both databases and every repository together for injection
// into the HTTP API and the execution engines. Accounts, positions, orders,
// and transactions are repositories over the ledger database; algorithms,
// rules, and backtests are repositories over the core database.
type Store struct {
	LedgerDB *database.DB
	CoreDB   *database.DB

	Accounts     *AccountRepository
	Positions    *PositionRepository
	Orders       *OrderRepository
	Transactions *TransactionRepository
	Algorithms   *AlgorithmRepository
	Rules        *RuleRepository
	Backtests    *BacktestRepository

	Bookkeeper *Bookkeeper
}

// NewStore constructs a Store from an already-migrated ledger database and
// core database.
func NewStore(ledgerDB, coreDB *database.DB) *Store {
	ledgerConn := ledgerDB.Conn()
	coreConn := coreDB.Conn()

	return &Store{
		LedgerDB: ledgerDB,
		CoreDB:   coreDB,

		Accounts:     NewAccountRepository(ledgerConn),
		Positions:    NewPositionRepository(ledgerConn),
		Orders:       NewOrderRepository(ledgerConn),
		Transactions: NewTransactionRepository(ledgerConn),
		Algorithms:   NewAlgorithmRepository(coreConn),
		Rules:        NewRuleRepository(coreConn),
		Backtests:    NewBacktestRepository(coreConn),

		Bookkeeper: NewBookkeeper(ledgerDB),
	}
}
