package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

// DateLayout is the ISO 8601 calendar date form used on the wire and in storage.
const DateLayout = "2006-01-02"

type (
	TransactionType string

	// Date is a calendar date with no time component, pinned to UTC midnight.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Type        TransactionType `json:"type"`
		Icon        string          `json:"icon"`
	}
)

var (
	ErrEmptyID            = errors.New("empty transaction id")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, data)
	}
	// Entries written by older clients may carry a full timestamp.
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

// ParseTransactionType maps user input to a type; empty input means expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case "", Expense:
		return Expense, nil
	case Income:
		return Income, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// NewTransaction builds a transaction for the given category. A blank
// description falls back to the category name.
func NewTransaction(id string, amount Money, description string, cat Category, date Date, typ TransactionType) Transaction {
	description = strings.TrimSpace(description)
	if description == "" {
		description = cat.Name
	}
	return Transaction{
		ID:          id,
		Category:    cat.Name,
		Description: description,
		Amount:      amount,
		Date:        date,
		Type:        typ,
		Icon:        cat.Icon,
	}
}

func (t Transaction) IsExpense() bool {
	return t.Type == Expense
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if _, ok := LookupCategory(t.Category); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, t.Category)
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}
