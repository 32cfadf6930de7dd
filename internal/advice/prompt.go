package advice

import (
	"fmt"
	"strings"

	"finflow/internal/core"
)

const (
	// FallbackMessage is shown whenever advice could not be produced.
	FallbackMessage = "I couldn't analyze your spending right now. Try again later!"
	// EmptyLogMessage is shown instead of calling the model when nothing was logged.
	EmptyLogMessage = "Start entering your daily spending so I can give you personalized financial advice!"
)

// Generation parameters sent with every prompt.
const (
	Temperature = 0.7
	TopP        = 0.8
	TopK        = 40
)

// BuildPrompt renders the advisor prompt for the given log, weekly limit and
// reference balance. Transactions are listed in log order.
func BuildPrompt(txs []core.Transaction, weeklyLimit, balance core.Money) string {
	var lines strings.Builder
	for i, tx := range txs {
		if i > 0 {
			lines.WriteByte('\n')
		}
		fmt.Fprintf(&lines, "%s: %s - Rs. %s (%s)", tx.Date, tx.Description, tx.Amount, tx.Category)
	}

	var b strings.Builder
	b.WriteString("As a world-class financial advisor for someone in Sri Lanka, analyze these recent transactions ")
	b.WriteString("and provide 3 short, actionable pieces of advice to help me save more money.\n")
	fmt.Fprintf(&b, "Weekly Budget Limit: Rs. %s\n", weeklyLimit)
	fmt.Fprintf(&b, "Current Total Balance: Rs. %s\n", balance)
	b.WriteString("Recent Transactions:\n")
	b.WriteString(lines.String())
	b.WriteString("\n\nReturn the response as a clear, encouraging list. Keep each point brief (under 15 words).")
	return b.String()
}
