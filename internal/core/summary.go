package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// WeekdayTotal is one bar of the Sun..Sat spending histogram.
type WeekdayTotal struct {
	Day       string `json:"day"`
	Amount    Money  `json:"amount"`
	Highlight bool   `json:"highlight"`
}

// DayGroup is a run of adjacent transactions sharing the same date.
type DayGroup struct {
	Date         Date          `json:"date"`
	Label        string        `json:"label"`
	Transactions []Transaction `json:"transactions"`
}

// BudgetStatus is the weekly goal card.
type BudgetStatus struct {
	Limit           Money `json:"limit"`
	Spent           Money `json:"spent"`
	Remaining       Money `json:"remaining"`
	SpentPercentage int   `json:"spent_percentage"`
}

// ChartSlice is one segment of the spent/remaining donut.
type ChartSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Dashboard is the summary shown on the landing view.
type Dashboard struct {
	Budget     BudgetStatus     `json:"budget"`
	Breakdown  []ChartSlice     `json:"breakdown"`
	Recent     []Transaction    `json:"recent"`
	ByCategory []CategoryAmount `json:"by_category"`
}

// ExpensesView is the weekday histogram plus the date separated history.
type ExpensesView struct {
	Weekdays []WeekdayTotal `json:"weekdays"`
	Groups   []DayGroup     `json:"groups"`
}
