package core

// Account is a mock payment account shown on the accounts view.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Balance  Money  `json:"balance"`
	LastFour string `json:"last_four"`
	Color    string `json:"color"`
}

// MockAccounts returns the static accounts. The first one is the main
// debit account whose balance feeds the advice prompt.
func MockAccounts() []Account {
	return []Account{
		{ID: "1", Name: "Main Debit", Balance: Money{Cents: 489390}, LastFour: "4848", Color: "#3D5AFE"},
		{ID: "2", Name: "Savings", Balance: Money{Cents: 1250000}, LastFour: "1290", Color: "#10B981"},
	}
}

// TotalBalance sums the balance of all accounts.
func TotalBalance(accounts []Account) Money {
	var total Money
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total
}
